package console

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julianstephens/habitbot/internal/conversation"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/metrics"
)

type scriptedHandler struct {
	got []conversation.Update
}

func (h *scriptedHandler) Handle(_ context.Context, upd conversation.Update) []conversation.Reply {
	h.got = append(h.got, upd)
	if upd.Text == "fail" {
		return []conversation.Reply{{
			Text: "sorry",
			Err:  apperrors.Storage("list habits", errors.New("disk I/O error")),
		}}
	}
	if upd.Text == "choose" {
		return []conversation.Reply{{
			Text: "Which one?",
			Keyboard: &conversation.Keyboard{Inline: true, Rows: [][]conversation.Button{
				{{Text: "1. Read", Data: "mark_1"}},
				{{Text: "Cancel", Data: "cancel"}},
			}},
		}}
	}
	return []conversation.Reply{{Text: "ok " + upd.Text + upd.Callback, Keyboard: conversation.MainMenu()}}
}

func TestRunConversation(t *testing.T) {
	in := strings.NewReader("/start\n\nchoose\n1. read\nchoose\n2\n/quit\nignored\n")
	var out bytes.Buffer
	h := &scriptedHandler{}

	err := Run(context.Background(), in, &out, h, Session{UserID: 5, Username: "me"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(h.got) != 5 {
		t.Fatalf("expected 5 updates, got %d: %+v", len(h.got), h.got)
	}
	if h.got[0].Text != "/start" || h.got[0].UserID != 5 || h.got[0].Username != "me" {
		t.Errorf("unexpected first update %+v", h.got[0])
	}
	if h.got[2].Callback != "mark_1" || h.got[2].Text != "" {
		t.Errorf("expected button label to become a callback, got %+v", h.got[2])
	}
	if h.got[4].Callback != "cancel" || h.got[4].Text != "" {
		t.Errorf("expected button number to become a callback, got %+v", h.got[4])
	}

	text := out.String()
	if !strings.Contains(text, "ok /start") {
		t.Errorf("expected reply in output, got %q", text)
	}
	if !strings.Contains(text, "[1] "+conversation.ButtonAddHabit) {
		t.Errorf("expected keyboard rendered, got %q", text)
	}
}

func TestRunMenuByNumberAndLabel(t *testing.T) {
	in := strings.NewReader("/start\n1\nadd habit\nADD HABIT\n" + conversation.ButtonAddHabit + "\n99\nsomething else\n")
	var out bytes.Buffer
	h := &scriptedHandler{}

	if err := Run(context.Background(), in, &out, h, Session{UserID: 3}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"/start",
		conversation.ButtonAddHabit,
		conversation.ButtonAddHabit,
		conversation.ButtonAddHabit,
		conversation.ButtonAddHabit,
		"99",
		"something else",
	}
	if len(h.got) != len(want) {
		t.Fatalf("expected %d updates, got %d: %+v", len(want), len(h.got), h.got)
	}
	for i, w := range want {
		if h.got[i].Text != w || h.got[i].Callback != "" {
			t.Errorf("update %d: expected text %q, got %+v", i, w, h.got[i])
		}
	}
}

func TestPick(t *testing.T) {
	menu := conversation.MainMenu()
	choices := &conversation.Keyboard{Inline: true, Rows: [][]conversation.Button{
		{{Text: "7. Read", Data: "mark_7"}},
		{{Text: conversation.ButtonCancel, Data: "cancel"}},
	}}

	tests := []struct {
		name  string
		kb    *conversation.Keyboard
		input string
		want  string
		ok    bool
	}{
		{"no keyboard", nil, "1", "", false},
		{"menu position", menu, "4", conversation.ButtonStats, true},
		{"menu label without emoji", menu, "my habits", conversation.ButtonMyHabits, true},
		{"menu position out of range", menu, "7", "", false},
		{"menu unknown label", menu, "hello", "", false},
		{"inline position", choices, "1", "mark_7", true},
		{"inline label", choices, "read", "mark_7", true},
		{"inline data", choices, "mark_7", "mark_7", true},
		{"inline cancel label", choices, "Cancel", "cancel", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := pick(tt.kb, tt.input)
			if ok != tt.ok {
				t.Fatalf("pick(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			got := b.Text
			if tt.kb.Inline {
				got = b.Data
			}
			if got != tt.want {
				t.Errorf("pick(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRunRecordsFailedUpdates(t *testing.T) {
	metrics.Init()
	var out bytes.Buffer
	if err := Run(context.Background(), strings.NewReader("fail\n"), &out, &scriptedHandler{}, Session{UserID: 1}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `habitbot_updates_total{outcome="storage",transport="console"} 1`) {
		t.Errorf("expected storage outcome for console update, got:\n%s", rec.Body.String())
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	h := &scriptedHandler{}
	if err := Run(context.Background(), strings.NewReader("hello"), &out, h, Session{UserID: 1}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.got) != 1 || h.got[0].Text != "hello" {
		t.Errorf("expected single update, got %+v", h.got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := Run(ctx, blockingReader{}, &out, &scriptedHandler{}, Session{UserID: 1}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
