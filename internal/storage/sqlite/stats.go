package sqlite

import (
	"context"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

func (s *Store) HabitCounts(ctx context.Context, userID int64) (models.Stats, error) {
	if err := s.opened("habit counts"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id,
		       COUNT(e.id),
		       COALESCE(SUM(CASE WHEN e.done = 1 THEN 1 ELSE 0 END), 0)
		FROM habits h
		LEFT JOIN entries e ON e.habit_id = h.id
		WHERE h.user_id = ?
		GROUP BY h.id
		ORDER BY h.id`, userID)
	if err != nil {
		return nil, apperrors.Storage("habit counts", err)
	}
	defer rows.Close()

	stats := models.Stats{}
	for rows.Next() {
		var id int64
		var st models.HabitStats
		if err := rows.Scan(&id, &st.Total, &st.Done); err != nil {
			return nil, apperrors.Storage("habit counts", err)
		}
		stats[id] = st
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("habit counts", err)
	}
	return stats, nil
}

// HabitSummaries reads habits and their counts in one statement, in creation order
func (s *Store) HabitSummaries(ctx context.Context, userID int64) ([]models.HabitSummary, error) {
	if err := s.opened("habit summaries"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.user_id, h.name, h.period, h.created_at,
		       COUNT(e.id),
		       COALESCE(SUM(CASE WHEN e.done = 1 THEN 1 ELSE 0 END), 0)
		FROM habits h
		LEFT JOIN entries e ON e.habit_id = h.id
		WHERE h.user_id = ?
		GROUP BY h.id
		ORDER BY h.id`, userID)
	if err != nil {
		return nil, apperrors.Storage("habit summaries", err)
	}
	defer rows.Close()

	summaries := []models.HabitSummary{}
	for rows.Next() {
		var sum models.HabitSummary
		var createdAt string
		if err := rows.Scan(&sum.Habit.ID, &sum.Habit.UserID, &sum.Habit.Name, &sum.Habit.Period, &createdAt,
			&sum.Stats.Total, &sum.Stats.Done); err != nil {
			return nil, apperrors.Storage("habit summaries", err)
		}
		if sum.Habit.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, apperrors.Storage("habit summaries", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("habit summaries", err)
	}
	return summaries, nil
}
