// Package server exposes the correction pipeline over a small HTTP API with
// websocket progress streaming.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scribeflow/scribeflow/internal/correction"
	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/gorilla/websocket"
)

// CorrectRequest is the JSON body for POST /api/correct
type CorrectRequest struct {
	Text             string `json:"text"`
	Level            string `json:"level,omitempty"`
	Language         string `json:"language,omitempty"`
	MaxTokens        int    `json:"maxTokens,omitempty"`
	OverlapSentences int    `json:"overlapSentences,omitempty"`
	Estimator        string `json:"estimator,omitempty"`
	Concurrent       bool   `json:"concurrent,omitempty"`
	Workers          int    `json:"workers,omitempty"`
	KeepLoaded       bool   `json:"keepLoaded,omitempty"`
}

// Server serves job submission, status and progress endpoints
type Server struct {
	addr         string
	manager      *resources.Manager
	orchestrator *correction.Orchestrator
	loadConfig   resources.LoadConfig
	jobs         *jobStore
	httpServer   *http.Server
	upgrader     websocket.Upgrader
}

// New creates a server bound to addr. The load configuration is applied to
// every correction job the server starts.
func New(addr string, manager *resources.Manager, loadConfig resources.LoadConfig) *Server {
	s := &Server{
		addr:         addr,
		manager:      manager,
		orchestrator: correction.NewOrchestrator(manager),
		loadConfig:   loadConfig,
		jobs:         newJobStore(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/correct", s.handleCorrect)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /api/jobs/{id}/progress", s.handleProgress)
	mux.HandleFunc("POST /api/cleanup", s.handleCleanup)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown is called
func (s *Server) ListenAndServe() error {
	utils.LogInfo("API server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and releases any loaded resources
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.manager.ReleaseAll()
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resources": s.manager.Status(),
		"metrics":   s.manager.MetricsSnapshot(),
	})
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req CorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}

	job := s.jobs.create()
	go s.runCorrection(job.ID, req)

	writeJSON(w, http.StatusAccepted, job)
}

// runCorrection executes one job in the background, publishing progress to
// any websocket subscribers
func (s *Server) runCorrection(jobID string, req CorrectRequest) {
	s.jobs.update(jobID, func(j *Job) { j.State = JobRunning })

	result, err := s.orchestrator.Run(context.Background(), correction.Request{
		Text:             req.Text,
		Level:            req.Level,
		Language:         req.Language,
		MaxTokens:        req.MaxTokens,
		OverlapSentences: req.OverlapSentences,
		Estimator:        req.Estimator,
		Concurrent:       req.Concurrent,
		Workers:          req.Workers,
		KeepResident:     req.KeepLoaded,
		LoadConfig:       s.loadConfig,
		Progress: func(current, total int, status string) {
			s.jobs.publish(ProgressEvent{
				JobID:   jobID,
				Current: current,
				Total:   total,
				Status:  status,
			})
		},
	})

	s.jobs.update(jobID, func(j *Job) {
		if err != nil {
			j.State = JobFailed
			j.Error = err.Error()
			return
		}
		j.State = JobCompleted
		j.Result = result.Text
		j.Chunks = result.ChunkCount
		j.Failed = len(result.FailedChunks)
	})

	if err != nil {
		utils.LogError("Job %s failed: %v", jobID, err)
	} else {
		utils.LogVerbose("Job %s completed (%d chunks)", jobID, result.ChunkCount)
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleProgress upgrades the connection to a websocket and streams progress
// events until the job reaches a terminal state or the client disconnects
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, ok := s.jobs.get(jobID); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("job not found"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.LogError("Websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			utils.LogDebug("Websocket close error: %v", err)
		}
	}()

	events, cancel := s.jobs.subscribe(jobID)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			job, ok := s.jobs.get(jobID)
			if !ok {
				return
			}
			if job.State == JobCompleted || job.State == JobFailed {
				if err := conn.WriteJSON(job); err == nil {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}
		}
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	s.manager.ForceCleanup()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.LogDebug("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
