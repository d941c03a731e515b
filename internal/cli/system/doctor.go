package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitbot/internal/backup"
	"github.com/julianstephens/habitbot/internal/cli"
	"github.com/julianstephens/habitbot/internal/constants"
	"github.com/julianstephens/habitbot/internal/keyring"
	"github.com/julianstephens/habitbot/internal/session"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsDB checks are skipped when the database is unreachable
	needsDB bool
	// warnOnly failures do not fail the run
	warnOnly bool
	run      func(ctx *cli.Context) error
}

var checks = []check{
	{name: "Configuration", run: checkConfig},
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "Session store", run: checkSessionStore},
	{name: "Telegram token", warnOnly: true, run: checkTelegramToken},
	{name: "Advice API key", warnOnly: true, run: checkAdviceKey},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Heading("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}

		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	return ctx.Config.Validate()
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Ctx); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx.Ctx, ctx.Config.Database.OpTimeout)
	defer cancel()
	return ctx.Store.Ping(pingCtx)
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion(ctx.Ctx)
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("schema version %d is behind %d, run 'habitbot migrate'", current, latest)
	}
	if current > latest {
		return fmt.Errorf("schema version %d is newer than supported version %d, upgrade habitbot", current, latest)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	loc, err := ctx.Config.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", ctx.Config.Tracker.Timezone, err)
	}
	now := time.Now().In(loc)
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s, run 'habitbot backup create'", mgr.Dir())
	}
	if age := time.Since(backups[0].Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkSessionStore(ctx *cli.Context) error {
	if ctx.Config.Session.Backend != constants.SessionRedis {
		return nil
	}
	store, err := session.New(ctx.Ctx, ctx.Config.Session)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	return nil
}

func checkTelegramToken(ctx *cli.Context) error {
	if ctx.Config.Telegram.Token == "" {
		return errors.New("no Telegram bot token configured, 'habitbot serve' will not start")
	}
	return nil
}

func checkAdviceKey(ctx *cli.Context) error {
	if ctx.Config.Advice.APIKey == "" {
		return errors.New("no OpenRouter API key configured, advice falls back to local tips")
	}
	return nil
}

func checkKeyring(*cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}
