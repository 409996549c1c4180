package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scribeflow/scribeflow/internal/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoadConfig(modelPath string) resources.LoadConfig {
	return resources.LoadConfig{ModelPath: modelPath}
}

func chatServer(t *testing.T, handler func(req ChatRequest) (int, interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func chatResponse(content string) ChatResponse {
	var resp ChatResponse
	resp.Choices = []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{
		{Message: ChatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
	}
	return resp
}

func TestService_Complete(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, interface{}) {
		assert.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		return http.StatusOK, chatResponse("completed text")
	})
	defer srv.Close()

	svc := NewService(srv.URL)
	out, err := svc.Complete(context.Background(), []ChatMessage{
		{Role: "user", Content: "hello"},
	}, CompletionOptions{Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "completed text", out)
}

func TestService_Complete_ServerError(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, interface{}) {
		var chatErr ChatError
		chatErr.Error.Message = "model not loaded"
		chatErr.Error.Code = 503
		return http.StatusServiceUnavailable, chatErr
	})
	defer srv.Close()

	svc := NewService(srv.URL)
	_, err := svc.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestService_Complete_NoChoices(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, interface{}) {
		return http.StatusOK, ChatResponse{}
	})
	defer srv.Close()

	svc := NewService(srv.URL)
	_, err := svc.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestService_Complete_Unreachable(t *testing.T) {
	svc := NewService("http://127.0.0.1:1")
	_, err := svc.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, CompletionOptions{})
	assert.Error(t, err)
}

func TestService_Correct(t *testing.T) {
	var captured ChatRequest
	srv := chatServer(t, func(req ChatRequest) (int, interface{}) {
		captured = req
		return http.StatusOK, chatResponse("Corrected text.")
	})
	defer srv.Close()

	svc := NewService(srv.URL)
	out, err := svc.Correct(context.Background(), "corected textt.", "light", "en")
	require.NoError(t, err)
	assert.Equal(t, "Corrected text.", out)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "Do not rephrase")
	assert.Contains(t, captured.Messages[0].Content, "language is en")
	assert.Equal(t, "corected textt.", captured.Messages[1].Content)
	assert.InDelta(t, 0.1, captured.Temperature, 1e-9)
}

func TestService_Correct_UnknownLevelFallsBackToStandard(t *testing.T) {
	var captured ChatRequest
	srv := chatServer(t, func(req ChatRequest) (int, interface{}) {
		captured = req
		return http.StatusOK, chatResponse("ok")
	})
	defer srv.Close()

	svc := NewService(srv.URL)
	_, err := svc.Correct(context.Background(), "text", "extreme", "")
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[0].Content, levelInstructions["standard"])
}

func TestService_WaitReady(t *testing.T) {
	ready := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			ready = true
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitReady(ctx))
}

func TestService_WaitReady_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, svc.WaitReady(ctx))
}

func TestLoader_RequiresModelPath(t *testing.T) {
	loader := Loader("llama-server", 0)
	_, err := loader(context.Background(), "correction", testLoadConfig(""))
	assert.Error(t, err)
}

func TestLoader_MissingBinary(t *testing.T) {
	loader := Loader("/nonexistent/llama-server", 0)
	_, err := loader(context.Background(), "correction", testLoadConfig("/tmp/model.gguf"))
	assert.Error(t, err)
}
