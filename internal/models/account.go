package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff
}

const (
	minDisplayNameLen = 2
	maxDisplayNameLen = 100
)

var loginIDPattern = regexp.MustCompile(`^\d{5,10}$`)

var (
	ErrEmptyTOTPSecret     = errors.New("totp secret must not be empty")
	ErrTwoFactorNotPending = errors.New("two-factor enrollment is not pending")
	ErrCorruptTwoFactor    = errors.New("two-factor marked verified without a secret")
)

type TwoFactorState int

const (
	TwoFactorNone TwoFactorState = iota
	TwoFactorPending
	TwoFactorActive
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorPending:
		return "2FA_PENDING"
	case TwoFactorActive:
		return "2FA_ACTIVE"
	default:
		return "NO_2FA"
	}
}

// TwoFactor is the account's TOTP enrollment. The zero value means no
// enrollment; the secret only exists in the pending and active states.
type TwoFactor struct {
	state  TwoFactorState
	secret string
}

func NoTwoFactor() TwoFactor {
	return TwoFactor{}
}

func PendingTwoFactor(secret string) (TwoFactor, error) {
	if secret == "" {
		return TwoFactor{}, ErrEmptyTOTPSecret
	}
	return TwoFactor{state: TwoFactorPending, secret: secret}, nil
}

func (t TwoFactor) State() TwoFactorState { return t.state }
func (t TwoFactor) Active() bool          { return t.state == TwoFactorActive }
func (t TwoFactor) Pending() bool         { return t.state == TwoFactorPending }

func (t TwoFactor) Secret() (string, bool) {
	return t.secret, t.state != TwoFactorNone
}

func (t TwoFactor) Activate() (TwoFactor, error) {
	if t.state != TwoFactorPending {
		return t, ErrTwoFactorNotPending
	}
	return TwoFactor{state: TwoFactorActive, secret: t.secret}, nil
}

// Columns maps the state onto the nullable secret and verified flag
// used by the users table.
func (t TwoFactor) Columns() (*string, bool) {
	if t.state == TwoFactorNone {
		return nil, false
	}
	secret := t.secret
	return &secret, t.state == TwoFactorActive
}

func TwoFactorFromColumns(secret *string, verified bool) (TwoFactor, error) {
	switch {
	case secret == nil || *secret == "":
		if verified {
			return TwoFactor{}, ErrCorruptTwoFactor
		}
		return NoTwoFactor(), nil
	case verified:
		return TwoFactor{state: TwoFactorActive, secret: *secret}, nil
	default:
		return TwoFactor{state: TwoFactorPending, secret: *secret}, nil
	}
}

// ResetToken holds the hash of an outstanding password-reset token.
type ResetToken struct {
	Hash      []byte
	ExpiresAt time.Time
}

func (r ResetToken) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type Account struct {
	ID           string
	LoginID      string
	DisplayName  string
	PasswordHash string
	Role         Role
	TwoFactor    TwoFactor
	Reset        *ResetToken
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAccount(id, loginID, displayName, passwordHash string, role Role, now time.Time) (Account, error) {
	loginID, err := NormalizeLoginID(loginID)
	if err != nil {
		return Account{}, err
	}
	displayName, err = NormalizeDisplayName(displayName)
	if err != nil {
		return Account{}, err
	}
	if !role.Valid() {
		return Account{}, invalid("role", "must be STUDENT or STAFF")
	}

	return Account{
		ID:           id,
		LoginID:      loginID,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
		TwoFactor:    NoTwoFactor(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func NormalizeLoginID(loginID string) (string, error) {
	loginID = strings.TrimSpace(loginID)
	if !loginIDPattern.MatchString(loginID) {
		return "", invalid("loginId", "must be 5 to 10 digits")
	}
	return loginID, nil
}

func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "must not be blank")
	}
	n := utf8.RuneCountInString(name)
	if n < minDisplayNameLen {
		return "", invalid("name", "must be at least 2 characters")
	}
	if n > maxDisplayNameLen {
		return "", invalid("name", "must be at most 100 characters")
	}
	return name, nil
}
