package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const backendOllama = "ollama"

// ollamaClient talks to the native Ollama chat API.
type ollamaClient struct {
	client     *api.Client
	model      string
	timeout    time.Duration
	structured bool
	logger     *zap.Logger
}

var _ Gateway = (*ollamaClient)(nil)

func newOllamaClient(cfg Config, logger *zap.Logger) (*ollamaClient, error) {
	// api.NewClient wants the server root, without the OpenAI-style /v1 suffix.
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url %q: %w", baseURL, err)
	}

	logger = logger.Named("OllamaGateway")
	logger.Info("Ollama gateway created",
		zap.String("baseURL", baseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return &ollamaClient{
		client:     api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout}),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		structured: cfg.StructuredOutput,
		logger:     logger,
	}, nil
}

// Complete sends the request once, without streaming.
func (c *ollamaClient) Complete(ctx context.Context, req Request) *Completion {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]api.Message, 0, len(req.Turns))
	for _, t := range req.Turns {
		messages = append(messages, api.Message{Role: t.Role, Content: t.Content})
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}
	if c.structured && req.Schema != nil {
		format, err := json.Marshal(req.Schema)
		if err == nil {
			chatReq.Format = format
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending chat request", zap.String("model", model), zap.Int("turns", len(messages)))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		status := statusError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(requestCtx.Err(), context.DeadlineExceeded) {
			status = statusTimeout
			c.logger.Warn("Chat request timed out", zap.Duration("timeout", c.timeout), zap.Duration("duration", duration))
		} else {
			c.logger.Warn("Chat request failed", zap.Duration("duration", duration), zap.Error(err))
		}
		recordRequest(backendOllama, model, status, duration)
		return failed(err, duration)
	}

	if strings.TrimSpace(resp.Message.Content) == "" {
		c.logger.Warn("Chat request returned no content", zap.Duration("duration", duration))
		recordRequest(backendOllama, model, statusEmptyResponse, duration)
		return failed(errors.New("empty response"), duration)
	}

	usage := Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	return finish(backendOllama, model, req, resp.Message.Content, usage, duration, c.logger)
}
