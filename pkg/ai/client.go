package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FailureContent is the message content of a failed completion. Callers that
// only read choices[0].message.content see this text instead of model output.
const FailureContent = "Error calling generation service"

var (
	// ErrGenerationFailed marks any transport or protocol failure.
	ErrGenerationFailed = errors.New("generation service call failed")
	// ErrSchemaMismatch marks a reply that does not satisfy the request schema.
	ErrSchemaMismatch = errors.New("reply does not match schema")
)

// Turn is one chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call.
type Request struct {
	Turns       []Turn
	Model       string  // empty means the gateway default
	Temperature float32 // sampling temperature
	MaxTokens   int
	Schema      *Schema // optional structured-output contract
}

// Message mirrors choices[i].message of the chat completion wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice mirrors choices[i] of the chat completion wire format.
type Choice struct {
	Message Message `json:"message"`
}

// Usage holds token counts for one call.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	Estimated        bool `json:"-"`
}

// Completion is the uniform result of a gateway call. Successful and failed
// calls have the same shape: a failed call carries Error and FailureContent
// as its only choice.
type Completion struct {
	Choices    []Choice               `json:"choices"`
	Usage      Usage                  `json:"usage"`
	Error      error                  `json:"-"`
	Raw        string                 `json:"-"` // model text before schema validation
	Structured map[string]interface{} `json:"-"` // set when the request carried a schema
	Duration   time.Duration          `json:"-"`
}

// Text returns choices[0].message.content.
func (c *Completion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// Failed reports whether the call failed.
func (c *Completion) Failed() bool {
	return c == nil || c.Error != nil
}

func succeeded(content string, usage Usage, duration time.Duration) *Completion {
	return &Completion{
		Choices:  []Choice{{Message: Message{Role: RoleAssistant, Content: content}}},
		Usage:    usage,
		Raw:      content,
		Duration: duration,
	}
}

func failed(cause error, duration time.Duration) *Completion {
	err := cause
	if !errors.Is(cause, ErrGenerationFailed) {
		err = fmt.Errorf("%w: %w", ErrGenerationFailed, cause)
	}
	return &Completion{
		Choices:  []Choice{{Message: Message{Role: RoleAssistant, Content: FailureContent}}},
		Error:    err,
		Duration: duration,
	}
}

// Gateway sends one chat completion request. It makes exactly one attempt and
// never returns an error value: failures are reported on the Completion.
type Gateway interface {
	Complete(ctx context.Context, req Request) *Completion
}

// Config configures the gateway backends.
type Config struct {
	Backend          string // openai or ollama
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	StructuredOutput bool // forward schemas to the backend
}

// NewGateway builds the gateway for the configured backend.
func NewGateway(cfg Config, logger *zap.Logger) (Gateway, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ai model is not configured")
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "openai":
		return newOpenAIClient(cfg, logger), nil
	case "ollama":
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.Backend)
	}
}

// finish applies schema validation to a successful reply and records metrics.
func finish(backend, model string, req Request, content string, usage Usage, duration time.Duration, logger *zap.Logger) *Completion {
	if usage.TotalTokens == 0 {
		usage = estimateUsage(model, req.Turns, content)
	}
	observeUsage(backend, model, usage)

	comp := succeeded(content, usage, duration)
	if req.Schema == nil {
		recordRequest(backend, model, statusSuccess, duration)
		return comp
	}

	obj, err := req.Schema.Extract(content)
	if err != nil {
		logger.Warn("Reply failed schema validation",
			zap.String("schema", req.Schema.Name),
			zap.Int("replyLength", len(content)),
			zap.Error(err),
		)
		recordRequest(backend, model, statusSchemaMismatch, duration)
		out := failed(err, duration)
		out.Raw = content
		out.Usage = usage
		return out
	}
	recordRequest(backend, model, statusSuccess, duration)
	comp.Structured = obj
	return comp
}
