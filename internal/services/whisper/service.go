// Package whisper talks to a local whisper.cpp server process and provides
// the loader callback that makes the transcription engine a managed resource.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// DefaultPort is the local transcription server port
const DefaultPort = 8572

// DefaultStartupTimeout bounds how long the loader waits for the model to
// load
const DefaultStartupTimeout = 2 * time.Minute

// TranscribeOptions contains per-request transcription parameters
type TranscribeOptions struct {
	Language    string  // ISO code or "auto"
	Translate   bool    // translate to English instead of transcribing
	Temperature float64 // decoder temperature
}

// Segment is one timed span of the transcript
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// TranscribeResult is the engine's response for one audio file
type TranscribeResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Service is an HTTP client bound to one running transcription server
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a client for the transcription server at baseURL
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Transcribe uploads an audio file to the engine and parses the timed result
func (s *Service) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*TranscribeResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close audio file: %v", err)
		}
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to copy audio data: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	if opts.Translate {
		fields["translate"] = "true"
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result TranscribeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}
	return &result, nil
}

// WaitReady polls the server until it answers or the context expires
func (s *Service) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
		if err != nil {
			return fmt.Errorf("failed to create readiness request: %w", err)
		}
		resp, err := s.client.Do(req)
		if err == nil {
			// Any HTTP answer means the server is up and the model loaded
			if err := resp.Body.Close(); err != nil {
				utils.LogDebug("Failed to close readiness response body: %v", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transcription server did not become ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Loader returns the resource loader callback for the transcription class.
// It starts a whisper-server process for the configured model and hands the
// process plus client handle to the resource manager. On failure the process
// is torn down again.
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
		if cfg.Language != "" && cfg.Language != "auto" {
			args = append(args, "-l", cfg.Language)
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
				utils.LogWarning("Failed to kill unready transcription server: %v", killErr)
			}
			_ = cmd.Wait()
			return resources.Instance{}, err
		}

		utils.LogVerbose("Transcription server ready on port %d (model %s)", port, cfg.ModelPath)
		return resources.NewProcessInstance(cmd, svc), nil
	}
}
