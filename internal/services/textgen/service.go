// Package textgen talks to a local llama.cpp server over its OpenAI-compatible
// HTTP API and provides the loader callback that makes the correction engine a
// managed resource.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// DefaultPort is the local model server port
const DefaultPort = 8573

// DefaultStartupTimeout bounds how long the loader waits for the model to
// finish loading into memory
const DefaultStartupTimeout = 3 * time.Minute

// ChatMessage is one message in a chat completion conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request body
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a chat completion response body
type ChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatError is an error response from the model server
type ChatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// CompletionOptions contains the parameters for a completion request
type CompletionOptions struct {
	Temperature      float64
	MaxTokens        int
	RequestTimeoutMS int
}

// Service is an HTTP client bound to one running model server
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a client for the model server at baseURL
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Complete sends a chat completion request and returns the first choice's
// content
func (s *Service) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	if opts.RequestTimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RequestTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	reqBody := ChatRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/chat/completions",
		bytes.NewBuffer(reqData),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var chatError ChatError
		if err := json.Unmarshal(respBody, &chatError); err == nil && chatError.Error.Message != "" {
			return "", fmt.Errorf("model server error: %s", chatError.Error.Message)
		}
		return "", fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("model server returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Correction level prompts. The model must return only the corrected text so
// the merge step can reassemble chunks without stripping commentary.
var levelInstructions = map[string]string{
	"light":    "Fix only clear transcription errors: misheard words, broken punctuation, obvious typos. Do not rephrase.",
	"standard": "Fix transcription errors and smooth awkward phrasing while keeping the speaker's wording and meaning intact.",
	"thorough": "Fix transcription errors, improve grammar and readability, and resolve misrecognized words from context. Keep the meaning intact.",
}

// Correct rewrites one transcript chunk at the given correction level
func (s *Service) Correct(ctx context.Context, text, level, language string) (string, error) {
	instruction, ok := levelInstructions[level]
	if !ok {
		instruction = levelInstructions["standard"]
	}

	system := "You are a transcript corrector. " + instruction +
		" Return only the corrected text, with no preamble or explanation."
	if language != "" {
		system += " The transcript language is " + language + "."
	}

	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}

	return s.Complete(ctx, messages, CompletionOptions{
		Temperature: 0.1,
	})
}

// WaitReady polls the server's health endpoint until the model is loaded or
// the context expires
func (s *Service) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("failed to create health request: %w", err)
		}
		resp, err := s.client.Do(req)
		if err == nil {
			ok := resp.StatusCode == http.StatusOK
			if err := resp.Body.Close(); err != nil {
				utils.LogDebug("Failed to close health response body: %v", err)
			}
			if ok {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("model server did not become ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Loader returns the resource loader callback for the correction class. It
// starts a llama-server process for the configured model, waits until the
// model is resident, and hands the process plus client handle to the resource
// manager. On any failure the process is torn down again so no half-started
// server leaks.
func Loader(binPath string, port int) resources.LoaderFunc {
	if port <= 0 {
		port = DefaultPort
	}
	return func(ctx context.Context, class resources.Class, cfg resources.LoadConfig) (resources.Instance, error) {
		if cfg.ModelPath == "" {
			return resources.Instance{}, fmt.Errorf("model path is required to load the %s engine", class)
		}

		args := []string{
			"-m", cfg.ModelPath,
			"--host", "127.0.0.1",
			"--port", strconv.Itoa(port),
		}
		if cfg.Threads > 0 {
			args = append(args, "-t", strconv.Itoa(cfg.Threads))
		}

		cmd := exec.Command(binPath, args...)
		if err := cmd.Start(); err != nil {
			return resources.Instance{}, fmt.Errorf("failed to start %s: %w", binPath, err)
		}

		svc := NewService(fmt.Sprintf("http://127.0.0.1:%d", port))

		waitCtx := ctx
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, DefaultStartupTimeout)
			defer cancel()
		}
		if err := svc.WaitReady(waitCtx); err != nil {
			if killErr := cmd.Process.Kill(); killErr != nil {
				utils.LogWarning("Failed to kill unready model server: %v", killErr)
			}
			_ = cmd.Wait()
			return resources.Instance{}, err
		}

		utils.LogVerbose("Model server ready on port %d (model %s)", port, cfg.ModelPath)
		return resources.NewProcessInstance(cmd, svc), nil
	}
}
