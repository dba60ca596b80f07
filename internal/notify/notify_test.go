package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/notify"
)

func TestStreamNotifierAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	n := notify.NewStreamNotifier(client, "campus:notifications")
	expires := time.Date(2026, 10, 17, 12, 15, 0, 0, time.UTC)
	require.NoError(t, n.Deliver(context.Background(), notify.PasswordReset("123456", "tok", expires)))

	entries, err := client.XRange(context.Background(), "campus:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, "password_reset", values["type"])
	assert.Equal(t, "123456", values["recipient"])
	assert.Equal(t, "tok", values["token"])
	assert.Equal(t, "2026-10-17T12:15:00Z", values["expiresAt"])
}

func TestStreamNotifierReportsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	n := notify.NewStreamNotifier(client, "campus:notifications")
	err := n.Deliver(context.Background(), notify.OrderStatus("acc-1", "ord-1", "CONFIRMED"))
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := notify.NewLogNotifier(zerolog.New(&buf))
	require.NoError(t, n.Deliver(context.Background(), notify.OrderReceipt("acc-1", "ord-1", "TOTAL: $1.50")))

	assert.Contains(t, buf.String(), `"kind":"order_receipt"`)
	assert.Contains(t, buf.String(), `"orderId":"ord-1"`)
}

func TestFromStreamRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sent := notify.OrderStatus("acc-1", "ord-1", "DISPATCHED")
	require.NoError(t, notify.NewStreamNotifier(client, "s").Deliver(context.Background(), sent))

	entries, err := client.XRange(context.Background(), "s", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := notify.FromStream(entries[0].Values)
	require.NoError(t, err)
	assert.Equal(t, sent, got)
}

func TestFromStreamRejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := notify.FromStream(map[string]any{"recipient": "acc-1"})
	assert.ErrorIs(t, err, notify.ErrMalformedMessage)

	_, err = notify.FromStream(map[string]any{"type": "order_status", "count": 3})
	assert.ErrorIs(t, err, notify.ErrMalformedMessage)
}
