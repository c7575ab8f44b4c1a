package llmsummary

import (
	"context"
	"errors"
	"strings"

	apperrors "qfusion/internal/common/errors"
	"qfusion/internal/common/logger"
	"qfusion/internal/common/metrics"

	openai "github.com/sashabaranov/go-openai"
)

const (
	TaskType    = "llm-summary"
	ServiceName = "completion"

	// NoSummaryText is returned when the model answers without any content.
	NoSummaryText = "No summary generated"
)

type Handler struct {
	config *Config
	client *openai.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	return &Handler{
		config: config,
		client: openai.NewClientWithConfig(cfg),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// ResolveModel substitutes the configured default for a blank model id.
func (h *Handler) ResolveModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return h.config.DefaultModel
}

// Complete sends messages to the chat completion endpoint and returns the first
// choice's content, or NoSummaryText when there is none.
func (h *Handler) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	if strings.TrimSpace(h.config.APIKey) == "" {
		return "", apperrors.NewMissingCredentialError(ServiceName)
	}
	model = h.ResolveModel(model)

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAI(messages),
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	}

	resp, err := h.client.CreateChatCompletion(ctx, req)
	if err != nil {
		status := upstreamStatus(err)
		metrics.UpstreamRequests.WithLabelValues(ServiceName, metrics.StatusClass(status)).Inc()
		h.logger.Error("chat completion failed", map[string]interface{}{
			"model":  model,
			"status": status,
			"error":  err,
		})
		return "", toUpstreamError(err, status)
	}
	metrics.UpstreamRequests.WithLabelValues(ServiceName, metrics.StatusClass(200)).Inc()

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		h.logger.Warn("completion returned no content", map[string]interface{}{"model": model})
		return NoSummaryText, nil
	}

	h.logger.Info("chat completion completed", map[string]interface{}{
		"model":            model,
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})
	return resp.Choices[0].Message.Content, nil
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func upstreamStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// toUpstreamError prefers the message reported by the API over the client's wrapper text.
func toUpstreamError(err error, status int) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && status > 0 {
		return apperrors.NewUpstreamStatusError(ServiceName, status, apiErr.Message)
	}
	return apperrors.NewUpstreamRequestFailedError(ServiceName, err)
}
