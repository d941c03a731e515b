package tracker

import (
	"context"

	"github.com/julianstephens/habitbot/internal/models"
)

// Aggregator derives completion statistics from the ledger
type Aggregator struct {
	base
}

// GetStats returns counts for every habit the user owns, zero-entry habits included.
// Values are recomputed on each call.
func (a *Aggregator) GetStats(ctx context.Context, userID int64) (models.Stats, error) {
	var stats models.Stats
	err := a.run(ctx, "get_stats", func(ctx context.Context) error {
		var err error
		stats, err = a.store.HabitCounts(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = models.Stats{}
	}
	return stats, nil
}

// HabitSummaries returns the user's habits with their stats in creation order.
// Habits and counts come from one read so they always agree.
func (a *Aggregator) HabitSummaries(ctx context.Context, userID int64) ([]models.HabitSummary, error) {
	var summaries []models.HabitSummary
	err := a.run(ctx, "habit_summaries", func(ctx context.Context) error {
		var err error
		summaries, err = a.store.HabitSummaries(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []models.HabitSummary{}
	}
	return summaries, nil
}
