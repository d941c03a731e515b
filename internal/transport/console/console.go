// Package console runs the conversation bot over a line-oriented terminal session.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitbot/internal/conversation"
	"github.com/julianstephens/habitbot/internal/metrics"
)

const transportName = "console"

var (
	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Handler processes one chat update
type Handler interface {
	Handle(ctx context.Context, upd conversation.Update) []conversation.Reply
}

// Session identifies the local user
type Session struct {
	UserID      int64
	Username    string
	DisplayName string
}

// Run reads one message per line from in until EOF, "/quit" or ctx cancellation.
// Buttons of the last keyboard shown can be chosen by typing their number or their
// label; case and any leading emoji are ignored.
func Run(ctx context.Context, in io.Reader, out io.Writer, h Handler, s Session) error {
	fmt.Fprintln(out, hintStyle.Render("Type /start to begin, /quit to exit."))

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	var kb *conversation.Keyboard
	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-errs
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		upd := conversation.Update{UserID: s.UserID, Username: s.Username, DisplayName: s.DisplayName, Text: line}
		if b, ok := pick(kb, line); ok {
			if kb.Inline {
				upd.Text = ""
				upd.Callback = b.Data
			} else {
				upd.Text = b.Text
			}
		}

		replies := h.Handle(ctx, upd)
		metrics.RecordUpdate(transportName, conversation.Failure(replies))

		for _, r := range replies {
			fmt.Fprintln(out, render(r))
			if r.Keyboard != nil {
				kb = r.Keyboard
			}
		}
	}
}

// pick resolves typed input to a button of kb, by 1-based position or by label.
// Inline buttons also match their callback data.
func pick(kb *conversation.Keyboard, input string) (conversation.Button, bool) {
	if kb == nil {
		return conversation.Button{}, false
	}
	var buttons []conversation.Button
	for _, row := range kb.Rows {
		buttons = append(buttons, row...)
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(buttons) {
			return conversation.Button{}, false
		}
		return buttons[n-1], true
	}

	want := label(input)
	for _, b := range buttons {
		if want != "" && label(b.Text) == want {
			return b, true
		}
		if kb.Inline && input == b.Data {
			return b, true
		}
	}
	return conversation.Button{}, false
}

// label drops everything before the first letter, such as emoji or a "3. " prefix
func label(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	return strings.ToLower(strings.TrimSpace(s))
}

func render(r conversation.Reply) string {
	var b strings.Builder
	b.WriteString(botStyle.Render(r.Text))
	if r.Keyboard == nil {
		return b.String()
	}

	b.WriteString("\n")
	n := 0
	for _, row := range r.Keyboard.Rows {
		labels := make([]string, 0, len(row))
		for _, btn := range row {
			n++
			labels = append(labels, keyStyle.Render("["+strconv.Itoa(n)+"]")+" "+btn.Text)
		}
		b.WriteString("  " + strings.Join(labels, "   ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
