package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

const entryColumns = `id, habit_id, to_char(date, 'YYYY-MM-DD'), done, note, created_at`

func (s *Store) AddEntry(ctx context.Context, entry models.Entry, unique bool) (models.Entry, error) {
	if err := s.opened("add entry"); err != nil {
		return models.Entry{}, err
	}
	stored := entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Row lock serializes concurrent marks for the same habit so the unique check holds
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM habits WHERE id = $1 FOR UPDATE`, entry.HabitID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("add entry", "habit %d not found", entry.HabitID)
		}
		if err != nil {
			return err
		}

		if unique {
			existing, err := scanEntry(tx.QueryRowContext(ctx, `
				SELECT `+entryColumns+`
				FROM entries WHERE habit_id = $1 AND date = $2::date
				ORDER BY id LIMIT 1`, entry.HabitID, entry.Date))
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO entries (habit_id, date, done, note)
			VALUES ($1, $2::date, $3, $4)
			RETURNING id, created_at`,
			entry.HabitID, entry.Date, entry.Done, entry.Note).Scan(&stored.ID, &stored.CreatedAt)
	})
	if err != nil {
		return models.Entry{}, apperrors.Storage("add entry", err)
	}
	return stored, nil
}

func (s *Store) ListEntries(ctx context.Context, habitID int64) ([]models.Entry, error) {
	if err := s.opened("list entries"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries WHERE habit_id = $1
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
	if err := row.Scan(&e.ID, &e.HabitID, &e.Date, &e.Done, &note, &e.CreatedAt); err != nil {
		return models.Entry{}, err
	}
	e.Note = stringPtr(note)
	return e, nil
}
