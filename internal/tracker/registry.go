package tracker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/julianstephens/habitbot/internal/constants"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

// Registry manages users and their habit definitions
type Registry struct {
	base
}

// RegisterUser records the user if unseen. Repeat calls return the stored record unchanged.
func (r *Registry) RegisterUser(ctx context.Context, userID int64, username, displayName string) (models.User, error) {
	var user models.User
	err := r.run(ctx, "register_user", func(ctx context.Context) error {
		var err error
		user, err = r.store.EnsureUser(ctx, models.User{
			UserID:      userID,
			Username:    optional(username),
			DisplayName: optional(displayName),
		})
		return err
	})
	return user, err
}

// GetUser returns the stored user or a NotFoundError
func (r *Registry) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := r.run(ctx, "get_user", func(ctx context.Context) error {
		var err error
		user, err = r.store.GetUser(ctx, userID)
		return err
	})
	return user, err
}

// CreateHabit validates and stores a new habit for an existing user
func (r *Registry) CreateHabit(ctx context.Context, userID int64, name, period string) (models.Habit, error) {
	name = strings.TrimSpace(name)
	period = strings.TrimSpace(period)

	if err := validateHabit(name, period); err != nil {
		return models.Habit{}, err
	}

	var habit models.Habit
	err := r.run(ctx, "create_habit", func(ctx context.Context) error {
		var err error
		habit, err = r.store.CreateHabit(ctx, models.Habit{UserID: userID, Name: name, Period: period})
		return err
	})
	return habit, err
}

// ListHabits returns the user's habits in creation order; never nil
func (r *Registry) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	var habits []models.Habit
	err := r.run(ctx, "list_habits", func(ctx context.Context) error {
		var err error
		habits, err = r.store.ListHabits(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []models.Habit{}
	}
	return habits, nil
}

// GetHabit returns a habit only if userID owns it
func (r *Registry) GetHabit(ctx context.Context, userID, habitID int64) (models.Habit, error) {
	var habit models.Habit
	err := r.run(ctx, "get_habit", func(ctx context.Context) error {
		var err error
		habit, err = r.store.GetHabit(ctx, habitID)
		if err == nil && habit.UserID != userID {
			return apperrors.NotFound("get habit", "habit %d not found", habitID)
		}
		return err
	})
	if err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

// DeleteHabit removes a habit and all of its entries
func (r *Registry) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	return r.run(ctx, "delete_habit", func(ctx context.Context) error {
		return r.store.DeleteHabit(ctx, userID, habitID)
	})
}

func validateHabit(name, period string) error {
	if name == "" {
		return apperrors.Validation("create habit", "habit name cannot be empty")
	}
	if utf8.RuneCountInString(name) > constants.MaxHabitNameLen {
		return apperrors.Validation("create habit", "habit name must be at most %d characters", constants.MaxHabitNameLen)
	}
	if period == "" {
		return apperrors.Validation("create habit", "period cannot be empty")
	}
	if utf8.RuneCountInString(period) > constants.MaxPeriodLen {
		return apperrors.Validation("create habit", "period must be at most %d characters", constants.MaxPeriodLen)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
