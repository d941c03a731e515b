package storage

import (
	"context"

	"github.com/julianstephens/habitbot/internal/models"
)

// Provider is the persistent store behind the habit tracker.
// Implementations return classified errors from internal/errors.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	// Migrate applies pending schema migrations and returns how many ran
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	// SchemaVersion reports the applied and the latest embedded schema versions
	SchemaVersion(ctx context.Context) (current, latest int, err error)

	// Users
	EnsureUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userID int64) (models.User, error)

	// Habits
	CreateHabit(ctx context.Context, habit models.Habit) (models.Habit, error)
	GetHabit(ctx context.Context, habitID int64) (models.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	// DeleteHabit removes the habit and its entries if it belongs to userID
	DeleteHabit(ctx context.Context, userID, habitID int64) error

	// Entries
	// AddEntry records a completion. When unique is set and an entry already exists
	// for the same habit and date, the existing entry is returned and nothing is written.
	AddEntry(ctx context.Context, entry models.Entry, unique bool) (models.Entry, error)
	ListEntries(ctx context.Context, habitID int64) ([]models.Entry, error)

	// Stats
	// HabitCounts returns entry totals for every habit owned by userID, including habits without entries
	HabitCounts(ctx context.Context, userID int64) (models.Stats, error)
	// HabitSummaries returns the user's habits with their counts from a single read, in creation order
	HabitSummaries(ctx context.Context, userID int64) ([]models.HabitSummary, error)

	// Utils
	GetConfigPath() string
}
