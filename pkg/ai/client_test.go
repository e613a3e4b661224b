package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testModel = "test-model"

func chatCompletionBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   testModel,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc, timeout time.Duration) Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := NewGateway(Config{
		Backend: "openai",
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Model:   testModel,
		Timeout: timeout,
	}, zap.NewNop())
	require.NoError(t, err)
	return gw
}

func TestOpenAIGateway_Success(t *testing.T) {
	var received struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []Turn  `json:"messages"`
	}
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionBody("What should the main character be?"))
	}, 5*time.Second)

	before := testutil.ToFloat64(aiRequestsTotal.With(prometheus.Labels{"backend": backendOpenAI, "model": testModel, "status": statusSuccess}))

	comp := gw.Complete(context.Background(), Request{
		Turns: []Turn{
			{Role: RoleSystem, Content: "You ask questions."},
			{Role: RoleUser, Content: "Game idea: a cat"},
		},
		Temperature: 0.3,
		MaxTokens:   4000,
	})

	require.False(t, comp.Failed())
	assert.Equal(t, "What should the main character be?", comp.Text())
	assert.Equal(t, 17, comp.Usage.TotalTokens)
	assert.Equal(t, testModel, received.Model)
	assert.InDelta(t, 0.3, received.Temperature, 0.0001)
	assert.Equal(t, 4000, received.MaxTokens)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, RoleSystem, received.Messages[0].Role)

	after := testutil.ToFloat64(aiRequestsTotal.With(prometheus.Labels{"backend": backendOpenAI, "model": testModel, "status": statusSuccess}))
	assert.Equal(t, before+1, after)
}

func TestOpenAIGateway_ServerError(t *testing.T) {
	var calls atomic.Int32
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}, 5*time.Second)

	comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})

	require.True(t, comp.Failed())
	assert.ErrorIs(t, comp.Error, ErrGenerationFailed)
	assert.Equal(t, FailureContent, comp.Text())
	assert.Equal(t, int32(1), calls.Load(), "gateway must not retry")
}

func TestOpenAIGateway_Timeout(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 100*time.Millisecond)

	comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})

	require.True(t, comp.Failed())
	assert.Equal(t, FailureContent, comp.Text())
	assert.Less(t, comp.Duration, 2*time.Second)
}

func TestOpenAIGateway_EmptyChoices(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body := chatCompletionBody("")
		body["choices"] = []interface{}{}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}, 5*time.Second)

	comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
	assert.True(t, comp.Failed())
	assert.Equal(t, FailureContent, comp.Text())
}

func TestOpenAIGateway_Schema(t *testing.T) {
	schema := &Schema{
		Name:       "plan",
		Properties: []Property{{Name: "game_title", Kind: KindString, Required: true}},
	}

	t.Run("valid reply is exposed as structured", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(chatCompletionBody("```json\n{\"game_title\": \"Cat Run\"}\n```"))
		}, 5*time.Second)

		comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "plan"}}, Schema: schema})
		require.False(t, comp.Failed())
		assert.Equal(t, "Cat Run", comp.Structured["game_title"])
	})

	t.Run("mismatch fails the call", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(chatCompletionBody(`{"title": "no game_title here"}`))
		}, 5*time.Second)

		comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "plan"}}, Schema: schema})
		require.True(t, comp.Failed())
		assert.ErrorIs(t, comp.Error, ErrSchemaMismatch)
		assert.ErrorIs(t, comp.Error, ErrGenerationFailed)
		assert.Equal(t, `{"title": "no game_title here"}`, comp.Raw)
		assert.Equal(t, FailureContent, comp.Text())
	})
}

func TestOllamaGateway_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":             testModel,
			"created_at":        time.Now().Format(time.RFC3339),
			"message":           map[string]string{"role": "assistant", "content": "How does the game get harder?"},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 20,
			"eval_count":        8,
		})
	}))
	t.Cleanup(srv.Close)

	gw, err := NewGateway(Config{Backend: "ollama", BaseURL: srv.URL + "/v1", Model: testModel, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	comp := gw.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
	require.False(t, comp.Failed())
	assert.Equal(t, "How does the game get harder?", comp.Text())
	assert.Equal(t, 28, comp.Usage.TotalTokens)
}

func TestNewGateway_Validation(t *testing.T) {
	_, err := NewGateway(Config{Backend: "carrier-pigeon", Model: testModel}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewGateway(Config{Backend: "openai"}, zap.NewNop())
	assert.Error(t, err)
}
