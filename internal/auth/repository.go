package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"catalog-api/internal/apperr"
)

const uniqueViolation = "23505"

// Repository is the Postgres-backed user store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password_hash, refresh_token, refresh_token_expires_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, user User) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	user.ID = id.String()
	user.RefreshToken = ""
	user.RefreshTokenExpiresAt = nil
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, $5)
	`, user.ID, user.Name, user.Email, user.PasswordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, apperr.Wrap(ErrUserExists, err)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrUserNotFound
	}
	return r.getOne(ctx, "id", id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *Repository) GetByRefreshToken(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUserNotFound
	}
	return r.getOne(ctx, "refresh_token", token)
}

func (r *Repository) getOne(ctx context.Context, column, value string) (User, error) {
	var user User
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.RefreshToken,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.Wrap(ErrUserNotFound, err)
		}
		return User{}, fmt.Errorf("query user by %s: %w", column, err)
	}
	if expiresAt.Valid {
		expires := expiresAt.Time.UTC()
		user.RefreshTokenExpiresAt = &expires
	}

	return user, nil
}

// SetRefreshToken replaces whatever session the user had.
func (r *Repository) SetRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, userID, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	return requireAffected(res)
}

func (r *Repository) ClearRefreshToken(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = '', refresh_token_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return requireAffected(res)
}

// ClearExpiredRefreshTokens empties at most batchSize sessions whose refresh token expired before now.
func (r *Repository) ClearExpiredRefreshTokens(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM users
			WHERE refresh_token <> '' AND refresh_token_expires_at < $1
			ORDER BY refresh_token_expires_at ASC
			LIMIT $2
		)
		UPDATE users u
		SET refresh_token = '', refresh_token_expires_at = NULL, updated_at = $1
		FROM stale
		WHERE u.id = stale.id
	`, now.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("clear expired refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired refresh tokens rows affected: %w", err)
	}

	return affected, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
