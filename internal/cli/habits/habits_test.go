package habits

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitbot/internal/cli"
	"github.com/julianstephens/habitbot/internal/config"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/models"
	"github.com/julianstephens/habitbot/internal/storage/sqlite"
)

func setupTestContext(t *testing.T, input string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "habitbot.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Database.Path = dbPath
	tr, err := cli.NewTracker(cfg, store)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Ctx:     context.Background(),
		Config:  cfg,
		Store:   store,
		Tracker: tr,
		Out:     out,
		In:      strings.NewReader(input),
	}
	if err := (&UserRegisterCmd{ID: 7, Username: "sam"}).Run(ctx); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	out.Reset()
	return ctx, out
}

func addHabit(t *testing.T, ctx *cli.Context, name, period string) models.Habit {
	t.Helper()
	if err := (&HabitAddCmd{User: 7, Name: name, Period: period}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	habits, err := ctx.Tracker.ListHabits(ctx.Ctx, 7)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	return habits[len(habits)-1]
}

func TestUserShow(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	if err := (&UserShowCmd{ID: 7}).Run(ctx); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"Username", "sam", "7"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}

	if err := (&UserShowCmd{ID: 99}).Run(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found for unknown user, got %v", err)
	}
}

func TestHabitAddAndList(t *testing.T) {
	ctx, out := setupTestContext(t, "")

	if err := (&HabitListCmd{User: 7}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No habits found.") {
		t.Errorf("expected empty listing, got %q", out.String())
	}

	addHabit(t, ctx, "Drink water", "daily")
	out.Reset()
	if err := (&HabitListCmd{User: 7}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"Drink water", "daily", "Period"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in listing:\n%s", want, out.String())
		}
	}
}

func TestHabitAddValidation(t *testing.T) {
	ctx, _ := setupTestContext(t, "")

	err := (&HabitAddCmd{User: 7, Name: "  ", Period: "daily"}).Run(ctx)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	err = (&HabitAddCmd{User: 99, Name: "Read", Period: "daily"}).Run(ctx)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for unknown user, got %v", err)
	}
}

func TestHabitMarkAndHistory(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	h := addHabit(t, ctx, "Read", "daily")

	if err := (&HabitMarkCmd{User: 7, ID: h.ID, Date: "2024-02-01", Note: "ch. 3"}).Run(ctx); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := (&HabitMarkCmd{User: 7, ID: h.ID, Date: "2024-02-02", Missed: true}).Run(ctx); err != nil {
		t.Fatalf("mark missed failed: %v", err)
	}
	if !strings.Contains(out.String(), "Marked Read as missed for 2024-02-02") {
		t.Errorf("unexpected output %q", out.String())
	}

	err := (&HabitMarkCmd{User: 7, ID: h.ID, Date: "02/03/2024"}).Run(ctx)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
	err = (&HabitMarkCmd{User: 8, ID: h.ID}).Run(ctx)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found for foreign habit, got %v", err)
	}

	out.Reset()
	if err := (&HabitHistoryCmd{User: 7, ID: h.ID}).Run(ctx); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"2024-02-01", "2024-02-02", "ch. 3"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in history:\n%s", want, out.String())
		}
	}
}

func TestStatsJSON(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	h := addHabit(t, ctx, "Read", "daily")
	addHabit(t, ctx, "Run", "weekly")
	if err := (&HabitMarkCmd{User: 7, ID: h.ID}).Run(ctx); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out.Reset()
	if err := (&StatsCmd{User: 7, JSON: true}).Run(ctx); err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var summaries []models.HabitSummary
	if err := json.Unmarshal(out.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Stats != (models.HabitStats{Total: 1, Done: 1}) {
		t.Errorf("unexpected stats for Read: %+v", summaries[0].Stats)
	}
	if summaries[1].Stats != (models.HabitStats{}) {
		t.Errorf("expected zero stats for Run, got %+v", summaries[1].Stats)
	}

	out.Reset()
	if err := (&StatsCmd{User: 7}).Run(ctx); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out.String(), "100.00%") {
		t.Errorf("expected ratio in table:\n%s", out.String())
	}
}

func TestHabitDelete(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		ctx, out := setupTestContext(t, "n\n")
		h := addHabit(t, ctx, "Snack", "daily")

		if err := (&HabitDeleteCmd{User: 7, ID: h.ID}).Run(ctx); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if !strings.Contains(out.String(), "Delete cancelled.") {
			t.Errorf("expected cancellation, got %q", out.String())
		}
		habits, _ := ctx.Tracker.ListHabits(ctx.Ctx, 7)
		if len(habits) != 1 {
			t.Errorf("habit should survive a declined delete")
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		ctx, _ := setupTestContext(t, "yes\n")
		h := addHabit(t, ctx, "Snack", "daily")

		if err := (&HabitDeleteCmd{User: 7, ID: h.ID}).Run(ctx); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		habits, _ := ctx.Tracker.ListHabits(ctx.Ctx, 7)
		if len(habits) != 0 {
			t.Errorf("expected habit deleted, got %+v", habits)
		}
	})
}

func TestAdviceUsesFallbackWithoutKey(t *testing.T) {
	ctx, out := setupTestContext(t, "")
	h := addHabit(t, ctx, "Stretch", "daily")

	out.Reset()
	if err := (&AdviceCmd{User: 7, ID: h.ID}).Run(ctx); err != nil {
		t.Fatalf("advice failed: %v", err)
	}
	if !strings.Contains(out.String(), "\"Stretch\"") {
		t.Errorf("expected local tips naming the habit, got %q", out.String())
	}
}
