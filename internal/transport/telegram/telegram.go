// Package telegram runs the conversation bot over the Telegram Bot API using long polling.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/constants"
	"github.com/julianstephens/habitbot/internal/conversation"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/metrics"
)

const transportName = "telegram"

// Handler processes one chat update
type Handler interface {
	Handle(ctx context.Context, upd conversation.Update) []conversation.Reply
}

// api is the part of *tgbotapi.BotAPI the adapter calls
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Adapter fans updates out to workers sharded by user id, so one user's
// messages are handled in order while different users proceed in parallel.
type Adapter struct {
	api     api
	handler Handler
	workers int
}

func newAdapter(client api, handler Handler, workers int) *Adapter {
	if workers < 1 {
		workers = constants.DefaultWorkers
	}
	return &Adapter{api: client, handler: handler, workers: workers}
}

// Run connects with cfg.Token and polls until ctx is cancelled
func Run(ctx context.Context, cfg config.TelegramConfig, handler Handler) error {
	if cfg.Token == "" {
		return fmt.Errorf("telegram bot token is not configured (set %s or run 'habitbot keyring set telegram')", config.EnvTelegramToken)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = cfg.Debug
	logger.Info("Telegram bot authorized", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	if u.Timeout <= 0 {
		u.Timeout = constants.DefaultPollTimeout
	}
	updates := bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()

	newAdapter(bot, handler, cfg.Workers).dispatch(ctx, updates)
	logger.Info("Telegram polling stopped")
	return nil
}

// dispatch consumes updates until the channel closes or ctx is done, then drains the workers
func (a *Adapter) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) {
	// Queued updates are still answered after shutdown begins.
	work := context.WithoutCancel(ctx)

	queues := make([]chan tgbotapi.Update, a.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, 16)
		wg.Add(1)
		go func(q <-chan tgbotapi.Update) {
			defer wg.Done()
			for upd := range q {
				a.process(work, upd)
			}
		}(queues[i])
	}

	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			from := upd.SentFrom()
			if from == nil {
				continue
			}
			shard := from.ID % int64(a.workers)
			if shard < 0 {
				shard = -shard
			}
			select {
			case queues[shard] <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

// process handles one update; a panic or send error affects only this update
func (a *Adapter) process(ctx context.Context, upd tgbotapi.Update) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Error("Update handler panicked", "update_id", upd.UpdateID, "panic", r)
		}
		metrics.RecordUpdate(transportName, err)
	}()

	in, chatID, ok := translate(upd)
	if !ok {
		return
	}

	if cb := upd.CallbackQuery; cb != nil {
		if _, ackErr := a.api.Request(tgbotapi.NewCallback(cb.ID, "")); ackErr != nil {
			logger.Warn("Failed to answer callback", "update_id", upd.UpdateID, "error", ackErr)
		}
	}

	replies := a.handler.Handle(ctx, in)
	err = conversation.Failure(replies)
	for _, r := range replies {
		if _, sendErr := a.api.Send(render(chatID, r)); sendErr != nil {
			err = sendErr
			logger.Error("Failed to send reply", "update_id", upd.UpdateID, "chat_id", chatID, "error", sendErr)
		}
	}
}

// translate converts a Telegram update to a conversation update
func translate(upd tgbotapi.Update) (conversation.Update, int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		m := upd.Message
		return conversation.Update{
			UserID:      m.From.ID,
			Username:    m.From.UserName,
			DisplayName: displayName(m.From),
			Text:        m.Text,
		}, m.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		cb := upd.CallbackQuery
		return conversation.Update{
			UserID:      cb.From.ID,
			Username:    cb.From.UserName,
			DisplayName: displayName(cb.From),
			Callback:    cb.Data,
		}, cb.Message.Chat.ID, true
	}
	return conversation.Update{}, 0, false
}

func displayName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func render(chatID int64, r conversation.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Keyboard == nil {
		return msg
	}

	if r.Keyboard.Inline {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Keyboard.Rows))
		for _, row := range r.Keyboard.Rows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		return msg
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(r.Keyboard.Rows))
	for _, row := range r.Keyboard.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Text))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	msg.ReplyMarkup = kb
	return msg
}
