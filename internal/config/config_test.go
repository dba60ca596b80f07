package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsWithRequiredSecrets(t *testing.T) {
	t.Setenv("CAMPUS_SECURITY_JWTSECRET", testSecret)
	t.Setenv("CAMPUS_AUTH_STAFFREGISTRATIONKEY", "kitchen")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Security.JWTFullTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, "Campus Delivery", cfg.Auth.Issuer)
	assert.Equal(t, 10, cfg.Auth.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Auth.RateLimit.Window)
	assert.Equal(t, 2*time.Hour, cfg.Orders.PendingTTL)
	assert.Equal(t, "0 */5 * * * *", cfg.Orders.ExpirySchedule)
	assert.Equal(t, "stream", cfg.Notifications.Driver)
	assert.Equal(t, "campus:notifications", cfg.Redis.NotificationStream)
	assert.Equal(t, "campus-workers", cfg.Worker.Group)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("CAMPUS_SECURITY_JWTSECRET", testSecret)
	t.Setenv("CAMPUS_AUTH_STAFFREGISTRATIONKEY", "kitchen")
	t.Setenv("CAMPUS_DATABASE_DRIVER", "memory")
	t.Setenv("CAMPUS_HTTP_PORT", "9090")
	t.Setenv("CAMPUS_ORDERS_PENDINGTTL", "45m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 45*time.Minute, cfg.Orders.PendingTTL)
}

func TestLoadRejectsShortSigningKey(t *testing.T) {
	t.Setenv("CAMPUS_SECURITY_JWTSECRET", "too-short")
	t.Setenv("CAMPUS_AUTH_STAFFREGISTRATIONKEY", "kitchen")

	_, err := Load()
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestLoadRequiresStaffKey(t *testing.T) {
	t.Setenv("CAMPUS_SECURITY_JWTSECRET", testSecret)
	t.Setenv("CAMPUS_AUTH_STAFFREGISTRATIONKEY", "   ")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingStaffKey)
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := AppConfig{}
	cfg.Security.JWTSecret = testSecret
	cfg.Auth.StaffRegistrationKey = "kitchen"
	cfg.Database.Driver = "mysql"
	cfg.Notifications.Driver = "log"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownDriver)

	cfg.Database.Driver = "memory"
	cfg.Notifications.Driver = "smtp"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownDriver)

	cfg.Notifications.Driver = "log"
	assert.NoError(t, cfg.Validate())
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("CAMPUS_WORKER_WORKER_CONSUMER", "worker-7")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "campus-workers", cfg.Worker.Group)
	assert.Equal(t, "worker-7", cfg.Worker.Consumer)
	assert.Equal(t, 30*time.Second, cfg.Worker.ClaimInterval)
	assert.Equal(t, "campus:notifications", cfg.Redis.NotificationStream)
}
