package repository_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/ids"
	"campusdelivery/internal/models"
	"campusdelivery/internal/repository"
)

var created = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func mustAccount(t *testing.T, loginID string) models.Account {
	t.Helper()
	account, err := models.NewAccount(ids.New(), loginID, "Alex", "$argon2id$hash", models.RoleStudent, created)
	require.NoError(t, err)
	return account
}

func testCredentialStore(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		account := mustAccount(t, "100001")
		require.NoError(t, store.Create(ctx, account))

		byID, err := store.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "100001", byID.LoginID)
		assert.Equal(t, models.RoleStudent, byID.Role)
		assert.Equal(t, models.TwoFactorNone, byID.TwoFactor.State())
		assert.Nil(t, byID.Reset)

		byLogin, err := store.FindByLoginID(ctx, "100001")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byLogin.ID)

		exists, err := store.ExistsByLoginID(ctx, "100001")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("absent lookups", func(t *testing.T) {
		_, err := store.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
		_, err = store.FindByLoginID(ctx, "999999")
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
		_, err = store.FindByResetTokenHash(ctx, []byte("nope"))
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
		exists, err := store.ExistsByLoginID(ctx, "999999")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate login id", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, mustAccount(t, "100002")))
		err := store.Create(ctx, mustAccount(t, "100002"))
		assert.ErrorIs(t, err, repository.ErrLoginIDTaken)
	})

	t.Run("update two factor", func(t *testing.T) {
		account := mustAccount(t, "100003")
		require.NoError(t, store.Create(ctx, account))

		updated, err := store.Update(ctx, account.ID, func(a *models.Account) error {
			tf, err := models.PendingTwoFactor("JBSWY3DPEHPK3PXP")
			a.TwoFactor = tf
			return err
		})
		require.NoError(t, err)
		assert.True(t, updated.TwoFactor.Pending())

		reloaded, err := store.FindByID(ctx, account.ID)
		require.NoError(t, err)
		secret, ok := reloaded.TwoFactor.Secret()
		assert.True(t, ok)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", secret)
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		account := mustAccount(t, "100004")
		require.NoError(t, store.Create(ctx, account))

		boom := errors.New("boom")
		_, err := store.Update(ctx, account.ID, func(a *models.Account) error {
			a.PasswordHash = "changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		reloaded, err := store.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$hash", reloaded.PasswordHash)

		_, err = store.Update(ctx, "missing", func(*models.Account) error { return nil })
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	})

	t.Run("reset token is consumed once", func(t *testing.T) {
		account := mustAccount(t, "100005")
		require.NoError(t, store.Create(ctx, account))

		hash := []byte("0123456789abcdef0123456789abcdef")
		_, err := store.Update(ctx, account.ID, func(a *models.Account) error {
			a.Reset = &models.ResetToken{Hash: hash, ExpiresAt: created.Add(15 * time.Minute)}
			return nil
		})
		require.NoError(t, err)

		holder, err := store.FindByResetTokenHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, account.ID, holder.ID)
		require.NotNil(t, holder.Reset)
		assert.WithinDuration(t, created.Add(15*time.Minute), holder.Reset.ExpiresAt, time.Second)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.UpdateByResetTokenHash(ctx, hash, func(a *models.Account) error {
					a.PasswordHash = "new-hash"
					a.Reset = nil
					return nil
				})
				if err == nil {
					wins.Add(1)
					return
				}
				assert.ErrorIs(t, err, repository.ErrAccountNotFound)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		reloaded, err := store.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", reloaded.PasswordHash)
		assert.Nil(t, reloaded.Reset)
	})
}

func mustOrder(t *testing.T, customerID string, at time.Time, items ...models.OrderItem) models.Order {
	t.Helper()
	order, err := models.NewOrder(ids.New(), customerID, "Alex", at)
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, order.AddItem(item, at))
	}
	return order
}

var chips = models.OrderItem{Type: models.ItemChips, Description: "BBQ chips", PriceCents: 150}

func testOrderRepository(t *testing.T, orders repository.OrderRepository, customerA, customerB string) {
	ctx := context.Background()

	first := mustOrder(t, customerA, created, chips)
	second := mustOrder(t, customerA, created.Add(time.Minute), chips, chips)
	third := mustOrder(t, customerB, created.Add(2*time.Minute))
	for _, o := range []models.Order{first, second, third} {
		require.NoError(t, orders.Create(ctx, o))
	}

	t.Run("find by id keeps items in order", func(t *testing.T) {
		found, err := orders.FindByID(ctx, second.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.Equal(t, chips, found.Items[0])
		assert.Equal(t, int64(300), found.TotalCents())

		_, err = orders.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	})

	t.Run("update transitions", func(t *testing.T) {
		updated, err := orders.Update(ctx, first.ID, func(o *models.Order) error {
			return o.Confirm(created.Add(time.Hour))
		})
		require.NoError(t, err)
		assert.Equal(t, models.OrderConfirmed, updated.Status)

		_, err = orders.Update(ctx, first.ID, func(o *models.Order) error {
			return o.Deliver(created.Add(time.Hour))
		})
		assert.ErrorIs(t, err, models.ErrOrderTransition)

		reloaded, err := orders.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderConfirmed, reloaded.Status)
	})

	t.Run("status queries", func(t *testing.T) {
		pending, err := orders.FindByStatus(ctx, models.OrderPending)
		require.NoError(t, err)
		assert.Equal(t, []string{second.ID, third.ID}, orderIDs(pending))

		active, err := orders.FindByStatus(ctx, models.ActiveStatuses...)
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID, third.ID}, orderIDs(active))

		history, err := orders.FindByStatus(ctx, models.HistoryStatuses...)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("customer and staleness queries", func(t *testing.T) {
		mine, err := orders.FindByCustomer(ctx, customerA)
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID}, orderIDs(mine))

		stale, err := orders.FindPendingCreatedBefore(ctx, created.Add(90*time.Second))
		require.NoError(t, err)
		assert.Equal(t, []string{second.ID}, orderIDs(stale))
	})
}

func orderIDs(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
