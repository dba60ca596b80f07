package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"campusdelivery/internal/ids"
	"campusdelivery/internal/models"
	"campusdelivery/internal/notify"
	"campusdelivery/internal/repository"
	"campusdelivery/internal/security"
)

var (
	ErrDuplicateIdentity  = errors.New("student id already registered")
	ErrForbidden          = errors.New("invalid staff registration key")
	ErrInvalidCredentials = errors.New("invalid student id or password")
	ErrInvalidState       = errors.New("two-factor state does not allow this operation")
	ErrInvalidTotpCode    = errors.New("invalid or expired 2fa code")
	ErrInvalidToken       = errors.New("invalid reset token")
	ErrExpiredToken       = errors.New("expired reset token")
	ErrValidation         = models.ErrValidation
)

const (
	MsgTwoFactorChallenge = "Enter the 6-digit code from your authenticator app"
	MsgTwoFactorSetup     = "Scan the QR code with your authenticator app, then confirm with your first code"
	MsgTwoFactorDisabled  = "2FA has been disabled"
	MsgForgotPassword     = "If that student ID is registered, a reset token has been sent"
	MsgPasswordReset      = "Password reset successfully - you can now log in"
)

const (
	minStudentPasswordLen = 6
	minStaffPasswordLen   = 8
	maxPasswordLen        = 128
	resetTokenBytes       = 32
)

type AuthOptions struct {
	StaffRegistrationKey string
	Issuer               string
	ResetTokenTTL        time.Duration
	Now                  func() time.Time
}

type AuthService struct {
	accounts repository.CredentialStore
	hasher   security.PasswordHasher
	tokens   *security.TokenIssuer
	totp     *security.TOTP
	notifier notify.Notifier
	opts     AuthOptions
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	accounts repository.CredentialStore,
	hasher security.PasswordHasher,
	tokens *security.TokenIssuer,
	totp *security.TOTP,
	notifier notify.Notifier,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 15 * time.Minute
	}
	if opts.Issuer == "" {
		opts.Issuer = "Campus Delivery"
	}
	return &AuthService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		totp:     totp,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

type AccountSummary struct {
	ID               string
	LoginID          string
	DisplayName      string
	Role             models.Role
	TwoFactorEnabled bool
}

func summarize(a models.Account) AccountSummary {
	return AccountSummary{
		ID:               a.ID,
		LoginID:          a.LoginID,
		DisplayName:      a.DisplayName,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactor.Active(),
	}
}

type AuthResult struct {
	Token     string
	ExpiresIn time.Duration
	Account   AccountSummary
}

// LoginOutcome is either LoginCompleted or LoginChallenge.
type LoginOutcome interface {
	loginOutcome()
}

type LoginCompleted struct {
	AuthResult
}

type LoginChallenge struct {
	PendingToken string
	ExpiresIn    time.Duration
	Message      string
}

func (LoginCompleted) loginOutcome() {}
func (LoginChallenge) loginOutcome() {}

type TotpSetup struct {
	Secret  string
	URI     string
	Message string
}

type RegisterInput struct {
	LoginID  string
	Name     string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	return s.register(ctx, input, models.RoleStudent)
}

func (s *AuthService) RegisterStaff(ctx context.Context, input RegisterInput, staffKey string) (AuthResult, error) {
	if !s.staffKeyMatches(staffKey) {
		return AuthResult{}, ErrForbidden
	}
	return s.register(ctx, input, models.RoleStaff)
}

// staffKeyMatches compares SHA-256 digests in constant time.
func (s *AuthService) staffKeyMatches(supplied string) bool {
	want := sha256.Sum256([]byte(s.opts.StaffRegistrationKey))
	got := sha256.Sum256([]byte(supplied))
	return s.opts.StaffRegistrationKey != "" && subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

func (s *AuthService) register(ctx context.Context, input RegisterInput, role models.Role) (AuthResult, error) {
	loginID, err := models.NormalizeLoginID(input.LoginID)
	if err != nil {
		return AuthResult{}, err
	}
	if _, err := models.NormalizeDisplayName(input.Name); err != nil {
		return AuthResult{}, err
	}
	if err := validatePassword(input.Password, role); err != nil {
		return AuthResult{}, err
	}

	exists, err := s.accounts.ExistsByLoginID(ctx, loginID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check login id: %w", err)
	}
	if exists {
		return AuthResult{}, ErrDuplicateIdentity
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := models.NewAccount(ids.New(), loginID, input.Name, hash, role, s.opts.Now())
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrLoginIDTaken) {
			return AuthResult{}, ErrDuplicateIdentity
		}
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("role", string(role)).
		Msg("account registered")

	return s.fullResult(account)
}

func (s *AuthService) Login(ctx context.Context, loginID, password string) (LoginOutcome, error) {
	account, err := s.findByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Burn the same hashing cost as a real check.
			_, _ = s.hasher.Verify(password, s.dummyPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("stored password hash unreadable")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if account.TwoFactor.Active() {
		pending, err := s.tokens.IssuePending2FA(identity(account))
		if err != nil {
			return nil, err
		}
		return LoginChallenge{
			PendingToken: pending,
			ExpiresIn:    security.Pending2FATTL,
			Message:      MsgTwoFactorChallenge,
		}, nil
	}

	result, err := s.fullResult(account)
	if err != nil {
		return nil, err
	}
	return LoginCompleted{AuthResult: result}, nil
}

// VerifyTotp completes a login that was answered with a challenge.
func (s *AuthService) VerifyTotp(ctx context.Context, accountID string, code int) (AuthResult, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find account: %w", err)
	}

	if !account.TwoFactor.Active() {
		return AuthResult{}, ErrInvalidState
	}
	secret, _ := account.TwoFactor.Secret()
	if !s.totp.Verify(secret, code) {
		return AuthResult{}, ErrInvalidTotpCode
	}

	return s.fullResult(account)
}

// SetupTotp starts (or restarts) enrollment with a fresh secret.
func (s *AuthService) SetupTotp(ctx context.Context, accountID string) (TotpSetup, error) {
	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return TotpSetup{}, err
	}

	account, err := s.accounts.Update(ctx, accountID, func(a *models.Account) error {
		pending, err := models.PendingTwoFactor(secret)
		if err != nil {
			return err
		}
		a.TwoFactor = pending
		a.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		return TotpSetup{}, s.accountErr(err)
	}

	return TotpSetup{
		Secret:  secret,
		URI:     security.EnrollmentURI(secret, account.LoginID, s.opts.Issuer),
		Message: MsgTwoFactorSetup,
	}, nil
}

func (s *AuthService) ConfirmTotpSetup(ctx context.Context, accountID string, code int) (AuthResult, error) {
	account, err := s.accounts.Update(ctx, accountID, func(a *models.Account) error {
		if !a.TwoFactor.Pending() {
			return ErrInvalidState
		}
		secret, _ := a.TwoFactor.Secret()
		if !s.totp.Verify(secret, code) {
			return ErrInvalidTotpCode
		}
		active, err := a.TwoFactor.Activate()
		if err != nil {
			return ErrInvalidState
		}
		a.TwoFactor = active
		a.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		return AuthResult{}, s.accountErr(err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("two-factor enabled")
	return s.fullResult(account)
}

func (s *AuthService) DisableTotp(ctx context.Context, accountID string) (string, error) {
	_, err := s.accounts.Update(ctx, accountID, func(a *models.Account) error {
		a.TwoFactor = models.NoTwoFactor()
		a.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		return "", s.accountErr(err)
	}
	return MsgTwoFactorDisabled, nil
}

// ForgotPassword always returns MsgForgotPassword. Lookup and delivery
// failures are logged and never reach the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, loginID string) string {
	token, hash, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		s.log.Error().Err(err).Msg("generate reset token")
		return MsgForgotPassword
	}
	expiresAt := s.opts.Now().Add(s.opts.ResetTokenTTL)

	account, err := s.findByLoginID(ctx, loginID)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Error().Err(err).Msg("forgot password lookup")
		}
		return MsgForgotPassword
	}

	if _, err := s.accounts.Update(ctx, account.ID, func(a *models.Account) error {
		a.Reset = &models.ResetToken{Hash: hash, ExpiresAt: expiresAt}
		a.UpdatedAt = s.opts.Now()
		return nil
	}); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("store reset token")
		return MsgForgotPassword
	}

	if err := s.notifier.Deliver(ctx, notify.PasswordReset(account.LoginID, token, expiresAt)); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("deliver reset token")
	}
	return MsgForgotPassword
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if err := validatePassword(newPassword, models.RoleStudent); err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.UpdateByResetTokenHash(ctx, security.HashOpaqueToken(token), func(a *models.Account) error {
		if a.Reset == nil {
			return ErrInvalidToken
		}
		if a.Reset.Expired(s.opts.Now()) {
			return ErrExpiredToken
		}
		a.PasswordHash = hash
		a.Reset = nil
		a.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset")
	return MsgPasswordReset, nil
}

func (s *AuthService) Me(ctx context.Context, accountID string) (AccountSummary, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return AccountSummary{}, s.accountErr(err)
	}
	return summarize(account), nil
}

func (s *AuthService) fullResult(account models.Account) (AuthResult, error) {
	token, err := s.tokens.IssueFull(identity(account))
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		Token:     token,
		ExpiresIn: s.tokens.FullTTL(),
		Account:   summarize(account),
	}, nil
}

// findByLoginID applies the registration normalization. An id that could
// never have been registered is reported as not found.
func (s *AuthService) findByLoginID(ctx context.Context, loginID string) (models.Account, error) {
	normalized, err := models.NormalizeLoginID(loginID)
	if err != nil {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return s.accounts.FindByLoginID(ctx, normalized)
}

// accountErr maps a vanished account onto the credentials error.
func (s *AuthService) accountErr(err error) error {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrInvalidCredentials
	}
	return err
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("campus-delivery-dummy-password")
		if err != nil {
			s.log.Error().Err(err).Msg("compute dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func identity(a models.Account) security.Identity {
	return security.Identity{
		Subject: a.ID,
		LoginID: a.LoginID,
		Role:    string(a.Role),
	}
}

func validatePassword(password string, role models.Role) error {
	minLen := minStudentPasswordLen
	if role == models.RoleStaff {
		minLen = minStaffPasswordLen
	}
	n := utf8.RuneCountInString(password)
	if n < minLen {
		return &models.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minLen)}
	}
	if n > maxPasswordLen {
		return &models.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d characters", maxPasswordLen)}
	}
	return nil
}
