// Package session keeps each user's position in a multi-step chat flow.
package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/constants"
)

// Step names the input the bot expects next from a user
type Step string

const (
	StepIdle                 Step = "idle"
	StepAwaitingHabitName    Step = "awaiting_habit_name"
	StepAwaitingPeriod       Step = "awaiting_period"
	StepAwaitingMarkChoice   Step = "awaiting_mark_choice"
	StepAwaitingAdviceChoice Step = "awaiting_advice_choice"
	StepAwaitingDeleteChoice Step = "awaiting_delete_choice"
)

// State is a user's conversation state. Name is set only while awaiting a period;
// HabitIDs only while awaiting a choice, and lists the habits that were offered.
type State struct {
	Step     Step    `json:"step"`
	Name     string  `json:"name,omitempty"`
	HabitIDs []int64 `json:"habit_ids,omitempty"`
}

func Idle() State {
	return State{Step: StepIdle}
}

func AwaitingHabitName() State {
	return State{Step: StepAwaitingHabitName}
}

func AwaitingPeriod(name string) State {
	return State{Step: StepAwaitingPeriod, Name: name}
}

func AwaitingMarkChoice(habitIDs []int64) State {
	return State{Step: StepAwaitingMarkChoice, HabitIDs: habitIDs}
}

func AwaitingAdviceChoice(habitIDs []int64) State {
	return State{Step: StepAwaitingAdviceChoice, HabitIDs: habitIDs}
}

func AwaitingDeleteChoice(habitIDs []int64) State {
	return State{Step: StepAwaitingDeleteChoice, HabitIDs: habitIDs}
}

// Offered reports whether habitID was among the choices presented
func (s State) Offered(habitID int64) bool {
	for _, id := range s.HabitIDs {
		if id == habitID {
			return true
		}
	}
	return false
}

// Store persists conversation state per user. Get returns Idle for unknown users.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case constants.SessionMemory, "":
		return NewMemoryStore(cfg.TTL), nil
	case constants.SessionRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
