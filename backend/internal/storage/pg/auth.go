package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
)

// =========================================================================
// Public Methods (satisfy the service.AuthStorage interface)
// =========================================================================

func (s *Storage) SaveUser(ctx context.Context, user domain.User) (domain.UserId, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.saveUser(ctx, s.db, user)
	return id, wrap("SaveUser", err)
}

func (s *Storage) User(ctx context.Context, email domain.Email) (domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.user(ctx, s.db, email)
	return user, wrap("User", err)
}

// SaveConfirmationData replaces any pending confirmation for the same email.
func (s *Storage) SaveConfirmationData(ctx context.Context, data domain.ConfirmationData) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return wrap("SaveConfirmationData", s.saveConfirmationData(ctx, s.db, data))
}

func (s *Storage) ConfirmationData(ctx context.Context, email domain.Email) (domain.ConfirmationData, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.confirmationData(ctx, s.db, email)
	return data, wrap("ConfirmationData", err)
}

func (s *Storage) DeleteConfirmationData(ctx context.Context, email domain.Email) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return wrap("DeleteConfirmationData", s.deleteConfirmationData(ctx, s.db, email))
}

// ConfirmUser creates the account and consumes its confirmation data atomically.
func (s *Storage) ConfirmUser(ctx context.Context, user domain.User) (domain.UserId, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id domain.UserId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = s.saveUser(ctx, tx, user); err != nil {
			return err
		}
		return s.deleteConfirmationData(ctx, tx, user.Email)
	})
	return id, wrap("ConfirmUser", err)
}

// =========================================================================
// Internal Methods (Core Database Logic)
// These methods accept a Querier and are transaction-agnostic.
// =========================================================================

var errUserExists = &internal_errors.ErrorWithStatusCode{Message: "User already exists", StatusCode: http.StatusConflict}

func (s *Storage) saveUser(ctx context.Context, q Querier, user domain.User) (domain.UserId, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO users(email, name, password_hash, is_admin) VALUES($1, $2, $3, $4)
		 ON CONFLICT (email) DO NOTHING RETURNING id`,
		user.Email, user.Name, user.PassHash, user.Admin).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, errUserExists
	}
	if err != nil {
		return -1, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (s *Storage) user(ctx context.Context, q Querier, email domain.Email) (domain.User, error) {
	var user domain.User
	err := q.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, is_admin, created_at FROM users WHERE email = $1", email,
	).Scan(&user.Id, &user.Email, &user.Name, &user.PassHash, &user.Admin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, internal_errors.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *Storage) saveConfirmationData(ctx context.Context, q Querier, data domain.ConfirmationData) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO confirmation_data(email, name, password_hash, confirmation_code_hash, expires_at)
        VALUES($1, $2, $3, $4, $5)
        ON CONFLICT (email) DO UPDATE SET
            name = EXCLUDED.name,
            password_hash = EXCLUDED.password_hash,
            confirmation_code_hash = EXCLUDED.confirmation_code_hash,
            expires_at = EXCLUDED.expires_at`,
		data.Email, data.Name, data.NewPassHash, data.ConfirmationCodeHash, data.Expires,
	)
	if err != nil {
		return fmt.Errorf("failed to insert confirmation data: %w", err)
	}
	return nil
}

func (s *Storage) confirmationData(ctx context.Context, q Querier, email domain.Email) (domain.ConfirmationData, error) {
	var data domain.ConfirmationData
	err := q.QueryRowContext(ctx, `
        SELECT email, name, password_hash, confirmation_code_hash, expires_at
        FROM confirmation_data WHERE email = $1`,
		email,
	).Scan(&data.Email, &data.Name, &data.NewPassHash, &data.ConfirmationCodeHash, &data.Expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ConfirmationData{}, &internal_errors.ErrorWithStatusCode{Message: "Confirmation data not found", StatusCode: http.StatusNotFound}
		}
		return domain.ConfirmationData{}, fmt.Errorf("failed to query confirmation data: %w", err)
	}
	return data, nil
}

func (s *Storage) deleteConfirmationData(ctx context.Context, q Querier, email domain.Email) error {
	result, err := q.ExecContext(ctx, "DELETE FROM confirmation_data WHERE email = $1", email)
	if err != nil {
		return fmt.Errorf("failed to delete confirmation data: %w", err)
	}
	rowsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for confirmation data deletion: %w", err)
	}
	if rowsDeleted == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Confirmation data not found for deletion", StatusCode: http.StatusNotFound}
	}
	return nil
}
