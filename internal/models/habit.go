package models

import "time"

// Habit represents a recurring practice a user tracks
type Habit struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	// Period is a free-text cadence ("daily", "3x/week", ...) stored verbatim
	Period    string    `json:"period"`
	CreatedAt time.Time `json:"created_at"`
}

// Entry is one recorded completion (or explicit miss) of a habit on a given day
type Entry struct {
	ID        int64     `json:"id"`
	HabitID   int64     `json:"habit_id"`
	Date      string    `json:"date"` // YYYY-MM-DD format
	Done      bool      `json:"done"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
