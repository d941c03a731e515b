package models

import "time"

// User is a chat participant identified by the platform's stable numeric id
type User struct {
	UserID      int64     `json:"user_id"`
	Username    *string   `json:"username,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the best human-readable name for the user, or fallback when none is known
func (u User) Name(fallback string) string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return fallback
}
