// Package advice produces improvement tips for a habit. Advice is best effort:
// every failure is absorbed and turned into a readable fallback text.
package advice

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/models"
)

// Request describes what to advise on
type Request struct {
	// UserID keys the per-user throttle
	UserID int64
	Habit  string
	// Stats is optional context for the prompt
	Stats *models.HabitStats
}

// Advisor generates advice text. Advise never fails; errors become fallback text.
type Advisor interface {
	Advise(ctx context.Context, req Request) string
}

// Class labels the outcome of an advice request for logs and metrics
type Class string

const (
	ClassOK        Class = "ok"
	ClassAuth      Class = "auth"
	ClassForbidden Class = "forbidden"
	ClassQuota     Class = "quota"
	ClassThrottled Class = "throttled"
	ClassNetwork   Class = "network"
	ClassEmpty     Class = "empty"
	ClassAPI       Class = "api"
	ClassUnknown   Class = "unknown"
	ClassFallback  Class = "fallback"
)

// FallbackText returns the message shown for a failed request of class c
func FallbackText(c Class, habit string) string {
	switch c {
	case ClassAuth:
		return "Authorization with OpenRouter failed (code 401).\n" +
			"Check that OPENROUTER_API_KEY is correct and the key has not been revoked."
	case ClassForbidden:
		return "Access to the OpenRouter model was denied (code 403).\n" +
			"Check that the model is available on your account or choose another one."
	case ClassQuota, ClassThrottled:
		return "Too many requests to OpenRouter in a short time (code 429).\n" +
			"Wait a little and try again."
	case ClassEmpty:
		return fmt.Sprintf("Try improving the habit '%s' by starting small! 🙂", habit)
	case ClassAPI:
		return "OpenRouter returned an error.\n" +
			"Please try again a little later."
	default:
		return "Could not get a response from the AI (OpenRouter).\n" +
			"Try again later, or just pick one small goal for today."
	}
}

// New returns the remote advisor when an API key is configured, otherwise the local fallback
func New(cfg config.AdviceConfig) Advisor {
	if cfg.APIKey == "" {
		logger.Info("OpenRouter API key not set, using local advice")
		return NewFallback()
	}
	return NewRemote(cfg)
}
