package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

func (s *Store) CreateHabit(ctx context.Context, habit models.Habit) (models.Habit, error) {
	if err := s.opened("create habit"); err != nil {
		return models.Habit{}, err
	}
	created := habit
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = $1`, habit.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Validation("create habit", "unknown user %d", habit.UserID)
		}
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO habits (user_id, name, period)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			habit.UserID, habit.Name, habit.Period).Scan(&created.ID, &created.CreatedAt)
	})
	if err != nil {
		return models.Habit{}, apperrors.Storage("create habit", err)
	}
	return created, nil
}

func (s *Store) GetHabit(ctx context.Context, habitID int64) (models.Habit, error) {
	if err := s.opened("get habit"); err != nil {
		return models.Habit{}, err
	}
	h, err := scanHabit(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, period, created_at
		FROM habits WHERE id = $1`, habitID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, apperrors.NotFound("get habit", "habit %d not found", habitID)
	}
	if err != nil {
		return models.Habit{}, apperrors.Storage("get habit", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	if err := s.opened("list habits"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, period, created_at
		FROM habits WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, apperrors.Storage("list habits", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, apperrors.Storage("list habits", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list habits", err)
	}
	return habits, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	if err := s.opened("delete habit"); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM habits WHERE id = $1 FOR UPDATE`, habitID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
			return apperrors.NotFound("delete habit", "habit %d not found", habitID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE habit_id = $1`, habitID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, habitID)
		return err
	})
	return apperrors.Storage("delete habit", err)
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Period, &h.CreatedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}
