// Package cli holds the state shared by the habitbot subcommands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/habitbot/internal/backup"
	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/storage"
	"github.com/julianstephens/habitbot/internal/storage/sqlite"
	"github.com/julianstephens/habitbot/internal/tracker"
)

type Context struct {
	Ctx     context.Context
	Config  config.Config
	Store   storage.Provider
	Tracker *tracker.Tracker
	Out     io.Writer
	In      io.Reader
}

var (
	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	headerCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// NewTracker builds the tracker services for store from cfg
func NewTracker(cfg config.Config, store storage.Provider) (*tracker.Tracker, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return tracker.New(store, tracker.Options{
		OpTimeout: cfg.Database.OpTimeout,
		Policy:    cfg.Tracker.CompletionPolicy,
		Location:  loc,
	}), nil
}

// Printf writes to the command output
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// Heading renders a section title
func (c *Context) Heading(title string) {
	fmt.Fprintln(c.Out, headingStyle.Render(title))
}

// Muted renders secondary text
func (c *Context) Muted(text string) {
	fmt.Fprintln(c.Out, mutedStyle.Render(text))
}

// Table renders rows under headers with a rounded border
func (c *Context) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
	fmt.Fprintln(c.Out, t.Render())
}

// Confirm asks a yes/no question on the command input; anything but y/yes declines
func (c *Context) Confirm(question string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [y/N]: ", question)
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// IsSQLite reports whether the configured store is a local SQLite file
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// PerformAutomaticBackup snapshots a SQLite store before destructive commands and only logs failures
func (c *Context) PerformAutomaticBackup() {
	if !c.IsSQLite() {
		return
	}
	if _, err := os.Stat(c.Store.GetConfigPath()); err != nil {
		return
	}
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
