// Package conversation turns chat updates into tracker calls and replies. It is
// transport-agnostic: adapters translate their wire format to Update and render Reply.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/julianstephens/habitbot/internal/advice"
	"github.com/julianstephens/habitbot/internal/constants"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/models"
	"github.com/julianstephens/habitbot/internal/session"
	"github.com/julianstephens/habitbot/internal/tracker"
)

// Update is one inbound message or button press
type Update struct {
	UserID      int64
	Username    string
	DisplayName string
	Text        string
	// Callback carries inline button data; Text is ignored when set
	Callback string
}

// Button is a keyboard key. Data is only used by inline keyboards.
type Button struct {
	Text string
	Data string
}

// Keyboard is either a persistent reply keyboard or an inline keyboard attached to one message
type Keyboard struct {
	Rows   [][]Button
	Inline bool
}

// Reply is one outbound message. Err is set when the text reports a failed operation.
type Reply struct {
	Text     string
	Keyboard *Keyboard
	Err      error
}

// Failure returns the first error carried by replies, for outcome metrics
func Failure(replies []Reply) error {
	for _, r := range replies {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Service is the subset of the tracker the bot drives
type Service interface {
	RegisterUser(ctx context.Context, userID int64, username, displayName string) (models.User, error)
	CreateHabit(ctx context.Context, userID int64, name, period string) (models.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	GetHabit(ctx context.Context, userID, habitID int64) (models.Habit, error)
	DeleteHabit(ctx context.Context, userID, habitID int64) error
	RecordCompletion(ctx context.Context, habitID int64, opts ...tracker.CompletionOption) (models.Entry, error)
	GetStats(ctx context.Context, userID int64) (models.Stats, error)
	HabitSummaries(ctx context.Context, userID int64) ([]models.HabitSummary, error)
}

var _ Service = (*tracker.Tracker)(nil)

// Bot is the per-user state machine behind every chat transport
type Bot struct {
	svc      Service
	advisor  advice.Advisor
	sessions session.Store
}

func NewBot(svc Service, advisor advice.Advisor, sessions session.Store) *Bot {
	return &Bot{svc: svc, advisor: advisor, sessions: sessions}
}

// turn carries the per-update context through the handlers
type turn struct {
	ctx context.Context
	id  string
	upd Update
}

// Handle processes one update. It never fails: errors become reply text and are logged.
func (b *Bot) Handle(ctx context.Context, upd Update) []Reply {
	t := turn{ctx: ctx, id: uuid.NewString(), upd: upd}
	logger.Debug("Handling update", "update_id", t.id, "user_id", upd.UserID, "callback", upd.Callback != "")

	if upd.Callback != "" {
		return b.handleCallback(t)
	}

	text := strings.TrimSpace(upd.Text)
	switch text {
	case "/start":
		return b.start(t)
	case "/help":
		return reply(textHelp, MainMenu())
	case "/cancel", ButtonCancel:
		return b.cancel(t)
	case ButtonAddHabit:
		b.setState(t, session.AwaitingHabitName())
		return reply(textAskName, cancelMenu())
	case ButtonMyHabits:
		return b.listHabits(t)
	case ButtonMarkDone:
		return b.offerChoice(t, callbackMark, textChooseMark, session.AwaitingMarkChoice)
	case ButtonStats:
		return b.stats(t)
	case ButtonAdvice:
		return b.offerChoice(t, callbackAdvice, textChooseAdvice, session.AwaitingAdviceChoice)
	case ButtonDeleteHabit:
		return b.offerChoice(t, callbackDelete, textChooseDelete, session.AwaitingDeleteChoice)
	}

	state := b.state(t)
	switch state.Step {
	case session.StepAwaitingHabitName:
		return b.receiveName(t, text)
	case session.StepAwaitingPeriod:
		return b.receivePeriod(t, state, text)
	case session.StepAwaitingMarkChoice, session.StepAwaitingAdviceChoice, session.StepAwaitingDeleteChoice:
		id, ok := parseChoice(text, "")
		if !ok {
			return reply(textNotOffered, nil)
		}
		return b.choose(t, state, id)
	default:
		return reply(textUnknown, MainMenu())
	}
}

func (b *Bot) handleCallback(t turn) []Reply {
	data := strings.TrimSpace(t.upd.Callback)
	if data == callbackCancel {
		return b.cancel(t)
	}

	state := b.state(t)
	var prefix string
	switch state.Step {
	case session.StepAwaitingMarkChoice:
		prefix = callbackMark
	case session.StepAwaitingAdviceChoice:
		prefix = callbackAdvice
	case session.StepAwaitingDeleteChoice:
		prefix = callbackDelete
	default:
		return reply(textExpired, MainMenu())
	}

	id, ok := parseChoice(data, prefix)
	if !ok {
		return reply(textExpired, MainMenu())
	}
	return b.choose(t, state, id)
}

func (b *Bot) start(t turn) []Reply {
	user, err := b.svc.RegisterUser(t.ctx, t.upd.UserID, t.upd.Username, t.upd.DisplayName)
	if err != nil {
		return b.failure(t, "register user", err)
	}
	b.setState(t, session.Idle())
	return reply(fmt.Sprintf(textWelcome, user.Name("friend")), MainMenu())
}

func (b *Bot) cancel(t turn) []Reply {
	b.setState(t, session.Idle())
	return reply(textCancelled, MainMenu())
}

func (b *Bot) receiveName(t turn, name string) []Reply {
	if name == "" {
		return reply(textEmptyName, cancelMenu())
	}
	if n := utf8.RuneCountInString(name); n > constants.MaxHabitNameLen {
		return reply(fmt.Sprintf("The habit name is too long (%d characters, at most %d allowed).", n, constants.MaxHabitNameLen), cancelMenu())
	}
	b.setState(t, session.AwaitingPeriod(name))
	return reply(fmt.Sprintf(textAskPeriod, name), cancelMenu())
}

func (b *Bot) receivePeriod(t turn, state session.State, period string) []Reply {
	if period == "" {
		return reply(textEmptyPeriod, cancelMenu())
	}

	// Habits need an owner row; users who skipped /start are registered here.
	if _, err := b.svc.RegisterUser(t.ctx, t.upd.UserID, t.upd.Username, t.upd.DisplayName); err != nil {
		return b.failure(t, "register user", err)
	}

	habit, err := b.svc.CreateHabit(t.ctx, t.upd.UserID, state.Name, period)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindValidation {
			return reply(apperrors.Message(err), cancelMenu())
		}
		b.setState(t, session.Idle())
		return b.failure(t, "create habit", err)
	}

	b.setState(t, session.Idle())
	logger.Info("Habit created", "update_id", t.id, "user_id", t.upd.UserID, "habit_id", habit.ID)
	return reply(fmt.Sprintf(textHabitAdded, habit.Name, habit.Period), MainMenu())
}

func (b *Bot) listHabits(t turn) []Reply {
	b.setState(t, session.Idle())
	habits, err := b.svc.ListHabits(t.ctx, t.upd.UserID)
	if err != nil {
		return b.failure(t, "list habits", err)
	}
	if len(habits) == 0 {
		return reply(textNoHabits, MainMenu())
	}
	return reply(formatHabits(habits), MainMenu())
}

func (b *Bot) stats(t turn) []Reply {
	b.setState(t, session.Idle())
	summaries, err := b.svc.HabitSummaries(t.ctx, t.upd.UserID)
	if err != nil {
		return b.failure(t, "get stats", err)
	}
	if len(summaries) == 0 {
		return reply(textNoHabits, MainMenu())
	}
	return reply(formatStats(summaries), MainMenu())
}

// offerChoice lists the user's habits as inline buttons and waits for a pick
func (b *Bot) offerChoice(t turn, prefix, prompt string, next func([]int64) session.State) []Reply {
	habits, err := b.svc.ListHabits(t.ctx, t.upd.UserID)
	if err != nil {
		b.setState(t, session.Idle())
		return b.failure(t, "list habits", err)
	}
	if len(habits) == 0 {
		b.setState(t, session.Idle())
		return reply(textNoHabits, MainMenu())
	}
	b.setState(t, next(habitIDs(habits)))
	return reply(prompt, habitChoices(habits, prefix))
}

// choose resolves a picked habit for whichever choice step is active
func (b *Bot) choose(t turn, state session.State, habitID int64) []Reply {
	if !state.Offered(habitID) {
		return reply(textNotOffered, nil)
	}

	habit, err := b.svc.GetHabit(t.ctx, t.upd.UserID, habitID)
	if err != nil {
		b.setState(t, session.Idle())
		return b.failure(t, "get habit", err)
	}
	b.setState(t, session.Idle())

	switch state.Step {
	case session.StepAwaitingMarkChoice:
		return b.mark(t, habit)
	case session.StepAwaitingAdviceChoice:
		return b.advise(t, habit)
	case session.StepAwaitingDeleteChoice:
		return b.delete(t, habit)
	}
	return reply(textUnknown, MainMenu())
}

func (b *Bot) mark(t turn, habit models.Habit) []Reply {
	entry, err := b.svc.RecordCompletion(t.ctx, habit.ID)
	if err != nil {
		return b.failure(t, "record completion", err)
	}
	return reply(fmt.Sprintf(textMarked, habit.Name, entry.Date), MainMenu())
}

func (b *Bot) advise(t turn, habit models.Habit) []Reply {
	req := advice.Request{UserID: t.upd.UserID, Habit: habit.Name}

	// Stats only enrich the prompt; a failure here must not block advice.
	if stats, err := b.svc.GetStats(t.ctx, t.upd.UserID); err != nil {
		logger.Warn("Stats unavailable for advice", "update_id", t.id, "user_id", t.upd.UserID, "error", err)
	} else if s, ok := stats[habit.ID]; ok {
		req.Stats = &s
	}

	text := b.advisor.Advise(t.ctx, req)
	return reply(fmt.Sprintf(textAdviceHeader, habit.Name, text), MainMenu())
}

func (b *Bot) delete(t turn, habit models.Habit) []Reply {
	if err := b.svc.DeleteHabit(t.ctx, t.upd.UserID, habit.ID); err != nil {
		return b.failure(t, "delete habit", err)
	}
	logger.Info("Habit deleted", "update_id", t.id, "user_id", t.upd.UserID, "habit_id", habit.ID)
	return reply(fmt.Sprintf(textDeleted, habit.Name), MainMenu())
}

// failure maps err to user-facing text. Storage and unexpected errors are logged and
// shown as a generic apology.
func (b *Bot) failure(t turn, op string, err error) []Reply {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindNotFound:
		return []Reply{{Text: apperrors.Message(err), Keyboard: MainMenu(), Err: err}}
	}
	logger.Error("Update failed", "update_id", t.id, "user_id", t.upd.UserID, "op", op, "error", err)
	return []Reply{{Text: textInternal, Keyboard: MainMenu(), Err: err}}
}

// state falls back to Idle when the session store is unavailable
func (b *Bot) state(t turn) session.State {
	st, err := b.sessions.Get(t.ctx, t.upd.UserID)
	if err != nil {
		logger.Warn("Session lookup failed", "update_id", t.id, "user_id", t.upd.UserID, "error", err)
		return session.Idle()
	}
	return st
}

func (b *Bot) setState(t turn, st session.State) {
	if err := b.sessions.Set(t.ctx, t.upd.UserID, st); err != nil {
		logger.Warn("Session update failed", "update_id", t.id, "user_id", t.upd.UserID, "step", st.Step, "error", err)
	}
}

func reply(text string, kb *Keyboard) []Reply {
	return []Reply{{Text: text, Keyboard: kb}}
}
