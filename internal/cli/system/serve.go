package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/habitbot/internal/advice"
	"github.com/julianstephens/habitbot/internal/cli"
	"github.com/julianstephens/habitbot/internal/conversation"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/metrics"
	"github.com/julianstephens/habitbot/internal/session"
	"github.com/julianstephens/habitbot/internal/transport/console"
	"github.com/julianstephens/habitbot/internal/transport/telegram"
)

// ServeCmd runs the Telegram bot until interrupted
type ServeCmd struct {
	MetricsAddr string `help:"Address for the Prometheus /metrics endpoint (overrides config)." placeholder:"HOST:PORT"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	bot, closeSessions, err := newBot(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	addr := ctx.Config.Metrics.Addr
	if c.MetricsAddr != "" {
		addr = c.MetricsAddr
	}
	if addr != "" {
		go func() {
			if err := metrics.Serve(ctx.Ctx, addr); err != nil {
				logger.Error("Metrics server stopped", "addr", addr, "error", err)
			}
		}()
		logger.Info("Serving metrics", "addr", addr)
	}

	logger.Info("Starting Telegram bot", "store", ctx.Store.GetConfigPath(), "workers", ctx.Config.Telegram.Workers)
	return telegram.Run(ctx.Ctx, ctx.Config.Telegram, bot)
}

// ChatCmd talks to the bot from the terminal as a local user
type ChatCmd struct {
	User int64  `help:"User id to chat as." default:"1"`
	Name string `help:"Display name to register with (defaults to $USER)."`
}

func (c *ChatCmd) Run(ctx *cli.Context) error {
	bot, closeSessions, err := newBot(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	name := c.Name
	if name == "" {
		name = currentUser()
	}
	return console.Run(ctx.Ctx, ctx.In, ctx.Out, bot, console.Session{
		UserID:      c.User,
		Username:    name,
		DisplayName: name,
	})
}

// newBot wires the conversation front-end to the configured session store and advisor
func newBot(ctx *cli.Context) (*conversation.Bot, func(), error) {
	sessions, err := session.New(ctx.Ctx, ctx.Config.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	closeFn := func() {
		if closer, ok := sessions.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close session store", "error", err)
			}
		}
	}

	return conversation.NewBot(ctx.Tracker, advice.New(ctx.Config.Advice), sessions), closeFn, nil
}

// currentUser names the local account for chat sessions
func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "me"
}
