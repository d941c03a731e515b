package habits

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/julianstephens/habitbot/internal/advice"
	"github.com/julianstephens/habitbot/internal/cli"
	"github.com/julianstephens/habitbot/internal/constants"
	"github.com/julianstephens/habitbot/internal/tracker"
)

type UserCmd struct {
	Register UserRegisterCmd `cmd:"" help:"Register a user."`
	Show     UserShowCmd     `cmd:"" help:"Show a registered user."`
}

type UserRegisterCmd struct {
	ID          int64  `arg:"" help:"External user id."`
	Username    string `help:"Username."`
	DisplayName string `help:"Display name."`
}

func (c *UserRegisterCmd) Run(ctx *cli.Context) error {
	user, err := ctx.Tracker.RegisterUser(ctx.Ctx, c.ID, c.Username, c.DisplayName)
	if err != nil {
		return err
	}
	ctx.Printf("✓ User %d registered as %s\n", user.UserID, user.Name("(unnamed)"))
	return nil
}

type UserShowCmd struct {
	ID int64 `arg:"" help:"External user id."`
}

func (c *UserShowCmd) Run(ctx *cli.Context) error {
	user, err := ctx.Tracker.GetUser(ctx.Ctx, c.ID)
	if err != nil {
		return err
	}
	username, displayName := "-", "-"
	if user.Username != nil {
		username = *user.Username
	}
	if user.DisplayName != nil {
		displayName = *user.DisplayName
	}
	ctx.Table([]string{"ID", "Username", "Display name", "Registered"}, [][]string{{
		strconv.FormatInt(user.UserID, 10),
		username,
		displayName,
		user.CreatedAt.Local().Format("2006-01-02 15:04"),
	}})
	return nil
}

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits."`
	Mark    HabitMarkCmd    `cmd:"" help:"Record a completion."`
	History HabitHistoryCmd `cmd:"" help:"Show the completion log of a habit."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit and its history."`
}

type HabitAddCmd struct {
	User   int64  `required:"" help:"Owner user id."`
	Name   string `arg:"" help:"Habit name."`
	Period string `arg:"" help:"How often, e.g. daily."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.Tracker.CreateHabit(ctx.Ctx, c.User, c.Name, c.Period)
	if err != nil {
		return err
	}
	ctx.Printf("Added habit %d: %s (%s)\n", habit.ID, habit.Name, habit.Period)
	return nil
}

type HabitListCmd struct {
	User int64 `required:"" help:"Owner user id."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Tracker.ListHabits(ctx.Ctx, c.User)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		rows = append(rows, []string{
			strconv.FormatInt(h.ID, 10),
			h.Name,
			h.Period,
			h.CreatedAt.Local().Format(constants.DateFormat),
		})
	}
	ctx.Heading(fmt.Sprintf("Habits of user %d", c.User))
	ctx.Table([]string{"ID", "Name", "Period", "Created"}, rows)
	return nil
}

type HabitMarkCmd struct {
	User   int64  `required:"" help:"Owner user id."`
	ID     int64  `arg:"" help:"Habit id."`
	Date   string `help:"Date (YYYY-MM-DD), defaults to today."`
	Missed bool   `help:"Record the day as not done."`
	Note   string `help:"Optional note."`
}

func (c *HabitMarkCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.Tracker.GetHabit(ctx.Ctx, c.User, c.ID)
	if err != nil {
		return err
	}

	opts := []tracker.CompletionOption{tracker.WithDone(!c.Missed)}
	if c.Date != "" {
		opts = append(opts, tracker.OnDateString(c.Date))
	}
	if c.Note != "" {
		opts = append(opts, tracker.WithNote(c.Note))
	}

	entry, err := ctx.Tracker.RecordCompletion(ctx.Ctx, habit.ID, opts...)
	if err != nil {
		return err
	}

	status := "done"
	if !entry.Done {
		status = "missed"
	}
	ctx.Printf("Marked %s as %s for %s\n", habit.Name, status, entry.Date)
	return nil
}

type HabitHistoryCmd struct {
	User int64 `required:"" help:"Owner user id."`
	ID   int64 `arg:"" help:"Habit id."`
}

func (c *HabitHistoryCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.Tracker.GetHabit(ctx.Ctx, c.User, c.ID)
	if err != nil {
		return err
	}
	entries, err := ctx.Tracker.History(ctx.Ctx, habit.ID)
	if err != nil {
		return err
	}

	ctx.Heading(fmt.Sprintf("%s (%s)", habit.Name, habit.Period))
	if len(entries) == 0 {
		ctx.Muted("No entries yet.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		done := "✓"
		if !e.Done {
			done = "✗"
		}
		note := ""
		if e.Note != nil {
			note = *e.Note
		}
		rows = append(rows, []string{e.Date, done, note})
	}
	ctx.Table([]string{"Date", "Done", "Note"}, rows)
	return nil
}

type HabitDeleteCmd struct {
	User int64 `required:"" help:"Owner user id."`
	ID   int64 `arg:"" help:"Habit id."`
	Yes  bool  `short:"y" help:"Skip confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.Tracker.GetHabit(ctx.Ctx, c.User, c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete habit %q and all of its entries?", habit.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Tracker.DeleteHabit(ctx.Ctx, c.User, habit.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", habit.Name)
	return nil
}

type StatsCmd struct {
	User int64 `required:"" help:"User id."`
	JSON bool  `help:"Print as JSON."`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	summaries, err := ctx.Tracker.HabitSummaries(ctx.Ctx, c.User)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Habit.Name,
			strconv.Itoa(s.Stats.Done),
			strconv.Itoa(s.Stats.Total),
			fmt.Sprintf("%.2f%%", s.Stats.Ratio()),
		})
	}
	ctx.Heading(fmt.Sprintf("Statistics for user %d", c.User))
	ctx.Table([]string{"Habit", "Done", "Total", "Ratio"}, rows)
	return nil
}

type AdviceCmd struct {
	User int64 `required:"" help:"User id."`
	ID   int64 `arg:"" help:"Habit id."`
}

func (c *AdviceCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.Tracker.GetHabit(ctx.Ctx, c.User, c.ID)
	if err != nil {
		return err
	}

	req := advice.Request{UserID: c.User, Habit: habit.Name}
	if stats, err := ctx.Tracker.GetStats(ctx.Ctx, c.User); err == nil {
		if s, ok := stats[habit.ID]; ok {
			req.Stats = &s
		}
	}

	ctx.Heading(fmt.Sprintf("Advice for %s", habit.Name))
	ctx.Println(advice.New(ctx.Config.Advice).Advise(ctx.Ctx, req))
	return nil
}
