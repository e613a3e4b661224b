package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const backendOpenAI = "openai"

// openAIClient talks to any OpenAI-compatible chat completion endpoint.
type openAIClient struct {
	client     *openaigo.Client
	model      string
	timeout    time.Duration
	structured bool
	logger     *zap.Logger
}

var _ Gateway = (*openAIClient)(nil)

func newOpenAIClient(cfg Config, logger *zap.Logger) *openAIClient {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger = logger.Named("OpenAIGateway")
	logger.Info("OpenAI gateway created",
		zap.String("baseURL", openaiConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("structuredOutput", cfg.StructuredOutput),
	)
	return &openAIClient{
		client:     openaigo.NewClientWithConfig(openaiConfig),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		structured: cfg.StructuredOutput,
		logger:     logger,
	}
}

// Complete sends the request once.
func (c *openAIClient) Complete(ctx context.Context, req Request) *Completion {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openaigo.ChatCompletionMessage, 0, len(req.Turns))
	for _, t := range req.Turns {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	chatReq := openaigo.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if c.structured && req.Schema != nil {
		chatReq.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema,
			},
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending chat completion",
		zap.String("model", model),
		zap.Int("turns", len(messages)),
		zap.Float32("temperature", req.Temperature),
		zap.Int("maxTokens", req.MaxTokens),
	)
	resp, err := c.client.CreateChatCompletion(requestCtx, chatReq)
	duration := time.Since(startTime)

	if err != nil {
		status := statusError
		var apiErr *openaigo.APIError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(requestCtx.Err(), context.DeadlineExceeded):
			status = statusTimeout
			c.logger.Warn("Chat completion timed out", zap.Duration("timeout", c.timeout), zap.Duration("duration", duration))
		case errors.As(err, &apiErr):
			c.logger.Warn("Chat completion rejected",
				zap.Int("httpStatus", apiErr.HTTPStatusCode),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		default:
			c.logger.Warn("Chat completion failed", zap.Duration("duration", duration), zap.Error(err))
		}
		recordRequest(backendOpenAI, model, status, duration)
		return failed(err, duration)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn("Chat completion returned no content", zap.Duration("duration", duration))
		recordRequest(backendOpenAI, model, statusEmptyResponse, duration)
		return failed(errors.New("empty response"), duration)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("Chat completion received",
		zap.Duration("duration", duration),
		zap.Int("length", len(content)),
		zap.Int("totalTokens", resp.Usage.TotalTokens),
	)
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return finish(backendOpenAI, model, req, content, usage, duration, c.logger)
}
