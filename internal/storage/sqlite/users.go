package sqlite

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

const selectUser = `SELECT user_id, username, display_name, created_at FROM users WHERE user_id = ?`

// EnsureUser inserts the user if absent and returns the stored record.
// An existing record is returned unchanged.
func (s *Store) EnsureUser(ctx context.Context, user models.User) (models.User, error) {
	if err := s.opened("ensure user"); err != nil {
		return models.User{}, err
	}
	var stored models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (user_id, username, display_name, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO NOTHING`,
			user.UserID, nullString(user.Username), nullString(user.DisplayName), now()); err != nil {
			return err
		}

		var err error
		stored, err = scanUser(tx.QueryRowContext(ctx, selectUser, user.UserID))
		return err
	})
	if err != nil {
		return models.User{}, apperrors.Storage("ensure user", err)
	}
	return stored, nil
}

func (s *Store) GetUser(ctx context.Context, userID int64) (models.User, error) {
	if err := s.opened("get user"); err != nil {
		return models.User{}, err
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("get user", "user %d not found", userID)
	}
	if err != nil {
		return models.User{}, apperrors.Storage("get user", err)
	}
	return u, nil
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var username, displayName sql.NullString
	var createdAt string

	if err := row.Scan(&u.UserID, &username, &displayName, &createdAt); err != nil {
		return models.User{}, err
	}

	var err error
	if u.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.User{}, err
	}
	u.Username = stringPtr(username)
	u.DisplayName = stringPtr(displayName)
	return u, nil
}
