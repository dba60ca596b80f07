package security_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/security"
)

// ASCII "12345678901234567890", the RFC 6238 SHA-1 seed.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestComputeTOTPMatchesRFC6238(t *testing.T) {
	t.Parallel()

	// Appendix B publishes eight digits; six-digit codes are the low digits.
	vectors := []struct {
		unix int64
		code int
	}{
		{59, 287082},
		{1111111109, 81804},
		{1111111111, 50471},
		{1234567890, 5924},
		{2000000000, 279037},
		{20000000000, 353130},
	}
	for _, v := range vectors {
		assert.Equal(t, v.code, security.ComputeTOTP(rfcSecret, v.unix/security.TOTPPeriod), "t=%d", v.unix)
	}
}

func TestComputeTOTPIsDeterministic(t *testing.T) {
	t.Parallel()

	secret, err := security.NewTOTP().GenerateSecret()
	require.NoError(t, err)

	for step := int64(0); step < 50; step++ {
		first := security.ComputeTOTP(secret, step)
		assert.Equal(t, first, security.ComputeTOTP(secret, step))
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 1_000_000)
	}
}

func TestComputeTOTPAgreesWithPquerna(t *testing.T) {
	t.Parallel()

	secret, err := security.NewTOTP().GenerateSecret()
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	want, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    security.TOTPPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	got := security.ComputeTOTP(secret, at.Unix()/security.TOTPPeriod)
	assert.Equal(t, want, security.FormatTOTP(got))
}

func TestVerifyDriftWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 12, 0, 10, 0, time.UTC)
	engine := security.NewTOTPWithClock(func() time.Time { return now })

	secret, err := engine.GenerateSecret()
	require.NoError(t, err)
	step := engine.CurrentStep()

	assert.True(t, engine.Verify(secret, security.ComputeTOTP(secret, step-1)))
	assert.True(t, engine.Verify(secret, security.ComputeTOTP(secret, step)))
	assert.True(t, engine.Verify(secret, security.ComputeTOTP(secret, step+1)))

	for _, far := range []int64{step - 2, step + 2} {
		code := security.ComputeTOTP(secret, far)
		// A code outside the window can still collide with one inside it.
		if code == security.ComputeTOTP(secret, step-1) ||
			code == security.ComputeTOTP(secret, step) ||
			code == security.ComputeTOTP(secret, step+1) {
			continue
		}
		assert.False(t, engine.Verify(secret, code), "step offset %d", far-step)
	}
}

func TestVerifyRejectsOutOfRangeCodes(t *testing.T) {
	t.Parallel()

	engine := security.NewTOTP()
	assert.False(t, engine.Verify(rfcSecret, -1))
	assert.False(t, engine.Verify(rfcSecret, 1_000_000))
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	engine := security.NewTOTP()
	a, err := engine.GenerateSecret()
	require.NoError(t, err)
	b, err := engine.GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Len(t, security.Base32Decode(a), 20)
	assert.NotEqual(t, a, b)
}

func TestEnrollmentURI(t *testing.T) {
	t.Parallel()

	uri := security.EnrollmentURI(rfcSecret, "123456", "Campus Delivery")
	assert.Equal(t,
		"otpauth://totp/Campus%20Delivery:123456?secret="+rfcSecret+
			"&issuer=Campus%20Delivery&algorithm=SHA1&digits=6&period=30",
		uri)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, "Campus Delivery", key.Issuer())
	assert.Equal(t, "123456", key.AccountName())
	assert.Equal(t, rfcSecret, key.Secret())
}

func TestEnrollmentURIEscapesSeparators(t *testing.T) {
	t.Parallel()

	uri := security.EnrollmentURI(rfcSecret, "ops@campus", "Dining: East")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/Dining%3A%20East:ops%40campus?"), uri)

	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "Dining: East", parsed.Query().Get("issuer"))
}
