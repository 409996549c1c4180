package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState describes the lifecycle of a submitted job
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// ProgressEvent is pushed to websocket subscribers as a job advances
type ProgressEvent struct {
	JobID   string `json:"jobId"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// Job tracks one asynchronous correction request
type Job struct {
	ID        string    `json:"id"`
	State     JobState  `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	Failed    int       `json:"failedChunks,omitempty"`
}

// jobStore keeps jobs and their progress subscribers in memory
type jobStore struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[string][]chan ProgressEvent
}

func newJobStore() *jobStore {
	return &jobStore{
		jobs:        make(map[string]*Job),
		subscribers: make(map[string][]chan ProgressEvent),
	}
}

func (s *jobStore) create() *Job {
	job := &Job{
		ID:        uuid.NewString(),
		State:     JobPending,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

func (s *jobStore) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (s *jobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

// subscribe registers a progress channel for a job. The returned function
// removes the subscription and closes the channel.
func (s *jobStore) subscribe(id string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	s.mu.Lock()
	s.subscribers[id] = append(s.subscribers[id], ch)
	s.mu.Unlock()

	// The close happens under the write lock so a concurrent publish either
	// finishes its send first or no longer sees the channel
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[id]
		for i, sub := range subs {
			if sub == ch {
				s.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, cancel
}

// publish sends an event to every subscriber of the job, dropping events for
// slow consumers rather than blocking the pipeline. Sends stay under the read
// lock so cancel cannot close a channel mid-send.
func (s *jobStore) publish(event ProgressEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}
