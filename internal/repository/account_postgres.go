package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusdelivery/internal/models"
)

const uniqueViolation = "23505"

const accountColumns = `
	id, login_id, display_name, password_hash, role,
	totp_secret, totp_verified, reset_token_hash, reset_token_expires_at,
	created_at, updated_at
`

type PostgresCredentialStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCredentialStore(pool *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

func (r *PostgresCredentialStore) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (
			id, login_id, display_name, password_hash, role,
			totp_secret, totp_verified, reset_token_hash, reset_token_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	secret, verified := account.TwoFactor.Columns()
	resetHash, resetExpires := resetColumns(account.Reset)

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.LoginID,
		account.DisplayName,
		account.PasswordHash,
		string(account.Role),
		secret,
		verified,
		resetHash,
		resetExpires,
		account.CreatedAt,
		account.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrLoginIDTaken
	}
	return err
}

func (r *PostgresCredentialStore) FindByID(ctx context.Context, id string) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *PostgresCredentialStore) FindByLoginID(ctx context.Context, loginID string) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login_id = $1`, loginID))
}

func (r *PostgresCredentialStore) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE login_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, loginID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresCredentialStore) FindByResetTokenHash(ctx context.Context, hash []byte) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`, hash))
}

func (r *PostgresCredentialStore) Update(ctx context.Context, id string, fn func(*models.Account) error) (models.Account, error) {
	return r.updateWhere(ctx, "id = $1", id, fn)
}

// UpdateByResetTokenHash locks the row holding the token. A concurrent
// caller blocked on the same row re-checks the predicate after the first
// commit, so once the token is cleared it finds nothing.
func (r *PostgresCredentialStore) UpdateByResetTokenHash(ctx context.Context, hash []byte, fn func(*models.Account) error) (models.Account, error) {
	return r.updateWhere(ctx, "reset_token_hash = $1", hash, fn)
}

func (r *PostgresCredentialStore) updateWhere(ctx context.Context, predicate string, arg any, fn func(*models.Account) error) (models.Account, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Account{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	account, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+predicate+` FOR UPDATE`, arg))
	if err != nil {
		return models.Account{}, err
	}

	if err := fn(&account); err != nil {
		return models.Account{}, err
	}

	const query = `
		UPDATE accounts SET
			password_hash = $2,
			totp_secret = $3,
			totp_verified = $4,
			reset_token_hash = $5,
			reset_token_expires_at = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	secret, verified := account.TwoFactor.Columns()
	resetHash, resetExpires := resetColumns(account.Reset)
	if err := tx.QueryRow(ctx, query,
		account.ID,
		account.PasswordHash,
		secret,
		verified,
		resetHash,
		resetExpires,
	).Scan(&account.UpdatedAt); err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Account{}, fmt.Errorf("commit: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account      models.Account
		role         string
		totpSecret   *string
		totpVerified bool
		resetHash    []byte
		resetExpires *time.Time
	)
	if err := row.Scan(
		&account.ID,
		&account.LoginID,
		&account.DisplayName,
		&account.PasswordHash,
		&role,
		&totpSecret,
		&totpVerified,
		&resetHash,
		&resetExpires,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}

	account.Role = models.Role(role)
	twoFactor, err := models.TwoFactorFromColumns(totpSecret, totpVerified)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s: %w", account.ID, err)
	}
	account.TwoFactor = twoFactor
	if resetHash != nil && resetExpires != nil {
		account.Reset = &models.ResetToken{Hash: resetHash, ExpiresAt: *resetExpires}
	}
	return account, nil
}

func resetColumns(reset *models.ResetToken) ([]byte, *time.Time) {
	if reset == nil {
		return nil, nil
	}
	expires := reset.ExpiresAt
	return reset.Hash, &expires
}
