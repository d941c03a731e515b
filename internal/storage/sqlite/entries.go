package sqlite

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

func (s *Store) AddEntry(ctx context.Context, entry models.Entry, unique bool) (models.Entry, error) {
	if err := s.opened("add entry"); err != nil {
		return models.Entry{}, err
	}
	stored := entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM habits WHERE id = ?`, entry.HabitID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("add entry", "habit %d not found", entry.HabitID)
		}
		if err != nil {
			return err
		}

		if unique {
			existing, err := scanEntry(tx.QueryRowContext(ctx, `
				SELECT id, habit_id, date, done, note, created_at
				FROM entries WHERE habit_id = ? AND date = ?
				ORDER BY id LIMIT 1`, entry.HabitID, entry.Date))
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		createdAt := now()
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO entries (habit_id, date, done, note, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			entry.HabitID, entry.Date, entry.Done, nullString(entry.Note), createdAt).Scan(&stored.ID); err != nil {
			return err
		}

		stored.CreatedAt, err = parseTime("created_at", createdAt)
		return err
	})
	if err != nil {
		return models.Entry{}, apperrors.Storage("add entry", err)
	}
	return stored, nil
}

// ListEntries returns a habit's entries ordered by date, then insertion
func (s *Store) ListEntries(ctx context.Context, habitID int64) ([]models.Entry, error) {
	if err := s.opened("list entries"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, habit_id, date, done, note, created_at
		FROM entries WHERE habit_id = ?
		ORDER BY date, id`, habitID)
	if err != nil {
		return nil, apperrors.Storage("list entries", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.Storage("list entries", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("list entries", err)
	}
	return entries, nil
}

func scanEntry(row scanner) (models.Entry, error) {
	var e models.Entry
	var note sql.NullString
	var createdAt string

	if err := row.Scan(&e.ID, &e.HabitID, &e.Date, &e.Done, &note, &createdAt); err != nil {
		return models.Entry{}, err
	}

	var err error
	if e.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Entry{}, err
	}
	e.Note = stringPtr(note)
	return e, nil
}
