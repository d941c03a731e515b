package tracker

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julianstephens/habitbot/internal/constants"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
)

// Ledger records habit completions
type Ledger struct {
	base
	policy constants.CompletionPolicy
	loc    *time.Location
	clock  func() time.Time
}

type completion struct {
	date string
	done bool
	note *string
	err  error
}

// CompletionOption customizes a recorded completion
type CompletionOption func(*completion)

// OnDate records the completion for t's calendar day
func OnDate(t time.Time) CompletionOption {
	return func(c *completion) {
		c.date = t.Format(constants.DateFormat)
	}
}

// OnDateString records the completion for a YYYY-MM-DD day
func OnDateString(s string) CompletionOption {
	return func(c *completion) {
		s = strings.TrimSpace(s)
		if _, err := time.Parse(constants.DateFormat, s); err != nil {
			c.err = apperrors.Validation("record completion", "invalid date %q, expected YYYY-MM-DD", s)
			return
		}
		c.date = s
	}
}

// WithDone sets whether the habit was actually done; defaults to true
func WithDone(done bool) CompletionOption {
	return func(c *completion) {
		c.done = done
	}
}

// WithNote attaches a short free-text note
func WithNote(note string) CompletionOption {
	return func(c *completion) {
		note = strings.TrimSpace(note)
		if note == "" {
			c.note = nil
			return
		}
		if utf8.RuneCountInString(note) > constants.MaxNoteLen {
			c.err = apperrors.Validation("record completion", "note must be at most %d characters", constants.MaxNoteLen)
			return
		}
		c.note = &note
	}
}

// Policy reports how repeated marks for the same day are treated
func (l *Ledger) Policy() constants.CompletionPolicy {
	return l.policy
}

// Today returns the current calendar day in the ledger's location
func (l *Ledger) Today() string {
	return l.clock().In(l.loc).Format(constants.DateFormat)
}

// RecordCompletion appends an entry for habitID. Under the once-per-day policy a
// second mark for the same day returns the existing entry instead of writing.
func (l *Ledger) RecordCompletion(ctx context.Context, habitID int64, opts ...CompletionOption) (models.Entry, error) {
	c := completion{date: l.Today(), done: true}
	for _, opt := range opts {
		opt(&c)
	}
	if c.err != nil {
		return models.Entry{}, c.err
	}

	var entry models.Entry
	err := l.run(ctx, "record_completion", func(ctx context.Context) error {
		var err error
		entry, err = l.store.AddEntry(ctx, models.Entry{
			HabitID: habitID,
			Date:    c.date,
			Done:    c.done,
			Note:    c.note,
		}, l.policy == constants.PolicyOncePerDay)
		return err
	})
	if err != nil {
		return models.Entry{}, err
	}
	return entry, nil
}

// History returns a habit's entries ordered by date
func (l *Ledger) History(ctx context.Context, habitID int64) ([]models.Entry, error) {
	var entries []models.Entry
	err := l.run(ctx, "list_entries", func(ctx context.Context) error {
		var err error
		entries, err = l.store.ListEntries(ctx, habitID)
		return err
	})
	return entries, err
}
