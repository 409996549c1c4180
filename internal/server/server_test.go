package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scribeflow/scribeflow/internal/resources"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGB = uint64(1024 * 1024 * 1024)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// fakeCorrector uppercases text so job results are easy to assert on
type fakeCorrector struct {
	fail bool
}

func (f *fakeCorrector) Correct(ctx context.Context, text, level, language string) (string, error) {
	if f.fail {
		return "", errors.New("model unavailable")
	}
	return strings.ToUpper(text), nil
}

func newTestServer(t *testing.T, corrector *fakeCorrector) (*Server, *httptest.Server) {
	t.Helper()

	loaders := map[resources.Class]resources.LoaderFunc{
		resources.ClassCorrection: func(ctx context.Context, class resources.Class, cfg resources.LoadConfig) (resources.Instance, error) {
			return resources.NewEngineInstance(closerFunc(func() error { return nil }), corrector), nil
		},
		resources.ClassTranscription: func(ctx context.Context, class resources.Class, cfg resources.LoadConfig) (resources.Instance, error) {
			return resources.NewEngineInstance(closerFunc(func() error { return nil }), nil), nil
		},
	}
	manager := resources.NewManager(loaders,
		resources.WithMemoryQuerier(&resources.StaticQuerier{Stats: resources.MemoryStats{
			TotalBytes:     32 * testGB,
			AvailableBytes: 24 * testGB,
			UsedBytes:      8 * testGB,
		}}),
		resources.WithSettleInterval(0),
	)

	s := New("127.0.0.1:0", manager, resources.LoadConfig{ModelPath: "/models/test.gguf"})
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJob(t *testing.T, resp *http.Response) Job {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var job Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	return job
}

func waitForTerminal(t *testing.T, baseURL, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/jobs/" + jobID)
		require.NoError(t, err)
		job := decodeJob(t, resp)
		if job.State == JobCompleted || job.State == JobFailed {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return Job{}
}

func TestServer_Status(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "resources")
	assert.Contains(t, body, "metrics")
}

func TestServer_CorrectLifecycle(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp := postJSON(t, ts.URL+"/api/correct", CorrectRequest{
		Text: "Hello there. How are you today.",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	job := decodeJob(t, resp)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, JobPending, job.State)

	done := waitForTerminal(t, ts.URL, job.ID)
	assert.Equal(t, JobCompleted, done.State)
	assert.Equal(t, "HELLO THERE. HOW ARE YOU TODAY.", done.Result)
	assert.Equal(t, 1, done.Chunks)
	assert.Zero(t, done.Failed)
}

func TestServer_CorrectRejectsBadRequests(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp := postJSON(t, ts.URL+"/api/correct", CorrectRequest{})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(ts.URL+"/api/correct", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer func() { _ = raw.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestServer_ChunkFailuresKeepOriginalText(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{fail: true})

	resp := postJSON(t, ts.URL+"/api/correct", CorrectRequest{Text: "Some text."})
	job := decodeJob(t, resp)

	done := waitForTerminal(t, ts.URL, job.ID)
	// Per-chunk failures keep the original text rather than failing the job
	assert.Equal(t, JobCompleted, done.State)
	assert.Equal(t, done.Chunks, done.Failed)
	assert.Equal(t, "Some text.", done.Result)
}

func TestServer_JobNotFound(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp, err := http.Get(ts.URL + "/api/jobs/no-such-job")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/jobs/no-such-job/progress")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Cleanup(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp, err := http.Post(ts.URL+"/api/cleanup", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ProgressWebsocket(t *testing.T) {
	_, ts := newTestServer(t, &fakeCorrector{})

	resp := postJSON(t, ts.URL+"/api/correct", CorrectRequest{
		Text:      "First sentence here. Second sentence follows. Third sentence ends it.",
		MaxTokens: 8,
	})
	job := decodeJob(t, resp)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/api/jobs/%s/progress", job.ID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	// The stream ends with the terminal job document once the run finishes
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("connection closed before terminal frame: %v", err)
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &frame))
		if state, ok := frame["state"].(string); ok {
			assert.Equal(t, string(JobCompleted), state)
			assert.NotEmpty(t, frame["result"])
			return
		}
	}
}
