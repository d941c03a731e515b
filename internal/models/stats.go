package models

import "math"

// HabitStats holds completion counts for a single habit
type HabitStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

// Ratio returns done/total as a percentage rounded to two decimals, or 0 when there are no entries
func (s HabitStats) Ratio() float64 {
	if s.Total <= 0 {
		return 0
	}
	return math.Round(float64(s.Done)/float64(s.Total)*100*100) / 100
}

// Stats maps habit id to its completion counts
type Stats map[int64]HabitStats

// HabitSummary pairs a habit with its completion counts
type HabitSummary struct {
	Habit Habit      `json:"habit"`
	Stats HabitStats `json:"stats"`
}
