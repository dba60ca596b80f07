package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

const (
	TOTPPeriod     = 30
	TOTPDigits     = 6
	totpSecretSize = 20
	totpModulo     = 1_000_000
	totpSkew       = 1
)

var labelEscaper = strings.NewReplacer(":", "%3A", "@", "%40")

// TOTP implements RFC 6238 with SHA-1, six digits and a 30 second step.
type TOTP struct {
	now    func() time.Time
	random io.Reader
}

func NewTOTP() *TOTP {
	return &TOTP{now: time.Now, random: rand.Reader}
}

func NewTOTPWithClock(now func() time.Time) *TOTP {
	return &TOTP{now: now, random: rand.Reader}
}

// GenerateSecret returns a new random 160-bit shared secret in base32.
func (t *TOTP) GenerateSecret() (string, error) {
	buf := make([]byte, totpSecretSize)
	if _, err := io.ReadFull(t.random, buf); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return Base32Encode(buf), nil
}

func (t *TOTP) CurrentStep() int64 {
	return t.now().Unix() / TOTPPeriod
}

// Verify accepts the code for the current step or one step either side.
func (t *TOTP) Verify(secret string, code int) bool {
	if code < 0 || code >= totpModulo {
		return false
	}
	step := t.CurrentStep()
	for k := int64(-totpSkew); k <= totpSkew; k++ {
		if ComputeTOTP(secret, step+k) == code {
			return true
		}
	}
	return false
}

// ComputeTOTP returns the code for the given time step in [0, 999999].
func ComputeTOTP(secret string, step int64) int {
	key := Base32Decode(secret)

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(step))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return int(truncated % totpModulo)
}

func FormatTOTP(code int) string {
	return fmt.Sprintf("%0*d", TOTPDigits, code)
}

// EnrollmentURI builds the otpauth:// URI read by authenticator apps.
func EnrollmentURI(secret, accountLabel, issuer string) string {
	escapedIssuer := escapeLabel(issuer)
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=%d&period=%d",
		escapedIssuer, escapeLabel(accountLabel), secret, escapedIssuer, TOTPDigits, TOTPPeriod)
}

func escapeLabel(s string) string {
	return labelEscaper.Replace(url.PathEscape(s))
}
