package advice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/julianstephens/habitbot/internal/config"
	"github.com/julianstephens/habitbot/internal/constants"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/metrics"
)

// RemoteAdvisor asks an OpenAI-compatible chat completion endpoint (OpenRouter by default)
type RemoteAdvisor struct {
	client  *openai.Client
	model   string
	limiter *userLimiter
}

// headerTransport adds the attribution headers OpenRouter uses for app rankings
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

func NewRemote(cfg config.AdviceConfig) *RemoteAdvisor {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}

	model := cfg.Model
	if model == "" {
		model = constants.DefaultAdviceModel
	}

	return &RemoteAdvisor{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		limiter: newUserLimiter(cfg.RatePerMinute),
	}
}

func (r *RemoteAdvisor) Advise(ctx context.Context, req Request) string {
	if !r.limiter.Allow(req.UserID) {
		logger.Warn("Advice request throttled", "user_id", req.UserID)
		metrics.RecordAdvice(string(ClassThrottled))
		return FallbackText(ClassThrottled, req.Habit)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Habit)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		MaxTokens:   constants.AdviceMaxTokens,
		Temperature: constants.AdviceTemperature,
	})
	if err != nil {
		class := Classify(err)
		logger.Error("Advice request failed", "class", class, "model", r.model, "error", err)
		metrics.RecordAdvice(string(class))
		return FallbackText(class, req.Habit)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		metrics.RecordAdvice(string(ClassEmpty))
		return FallbackText(ClassEmpty, req.Habit)
	}

	metrics.RecordAdvice(string(ClassOK))
	return text
}

func systemPrompt(habit string) string {
	return "You are a friendly assistant that helps people build good habits. " +
		"Answer briefly and to the point. " +
		fmt.Sprintf("The user picked the habit: '%s'. ", habit) +
		"Give 3-5 concrete tips for doing this habit more consistently. " +
		"Avoid generic phrases and focus on practical actions. " +
		"Format: a numbered list of 3-5 items."
}

func userPrompt(req Request) string {
	prompt := fmt.Sprintf("Give me advice on the habit: %s", req.Habit)
	if req.Stats != nil {
		prompt += fmt.Sprintf(". So far I completed it %d of %d times (%.2f%%).",
			req.Stats.Done, req.Stats.Total, req.Stats.Ratio())
	}
	return prompt
}

// Classify maps a completion error to its failure class
func Classify(err error) Class {
	if err == nil {
		return ClassOK
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case 0:
	case http.StatusUnauthorized:
		return ClassAuth
	case http.StatusForbidden:
		return ClassForbidden
	case http.StatusTooManyRequests:
		return ClassQuota
	default:
		return ClassAPI
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassNetwork
	}
	return ClassUnknown
}
