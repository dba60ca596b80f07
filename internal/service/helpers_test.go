package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/notify"
	"campusdelivery/internal/repository"
	"campusdelivery/internal/security"
	"campusdelivery/internal/service"
)

const staffKey = "let-me-in-staff"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type capturingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *capturingNotifier) Deliver(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *capturingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

func (n *capturingNotifier) Last(t *testing.T) notify.Message {
	t.Helper()
	msgs := n.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type authEnv struct {
	svc      *service.AuthService
	store    *repository.MemoryCredentialStore
	tokens   *security.TokenIssuer
	totp     *security.TOTP
	notifier *capturingNotifier
	clock    *clock
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	clk := &clock{t: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	tokens, err := security.NewTokenIssuerWithClock([]byte("test-signing-key-0123456789abcdef"), 24*time.Hour, clk.Now)
	require.NoError(t, err)

	env := &authEnv{
		store:    repository.NewMemoryCredentialStore(),
		tokens:   tokens,
		totp:     security.NewTOTPWithClock(clk.Now),
		notifier: &capturingNotifier{},
		clock:    clk,
	}
	env.svc = service.NewAuthService(
		env.store,
		security.NewArgon2Hasher(security.Argon2Params{Time: 1, Memory: 1024, Threads: 1}),
		env.tokens,
		env.totp,
		env.notifier,
		service.AuthOptions{
			StaffRegistrationKey: staffKey,
			Issuer:               "Campus Delivery",
			ResetTokenTTL:        15 * time.Minute,
			Now:                  clk.Now,
		},
		zerolog.Nop(),
	)
	return env
}

func (e *authEnv) currentCode(secret string) int {
	return security.ComputeTOTP(secret, e.totp.CurrentStep())
}

// wrongCode returns a code that matches none of the accepted steps.
func (e *authEnv) wrongCode(secret string) int {
	step := e.totp.CurrentStep()
	accepted := map[int]bool{}
	for k := int64(-1); k <= 1; k++ {
		accepted[security.ComputeTOTP(secret, step+k)] = true
	}
	for c := 0; ; c++ {
		if !accepted[c] {
			return c
		}
	}
}
