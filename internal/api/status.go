package api

import (
	"sync"
	"time"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// PassStatus is the externally visible state of the most recent pass.
type PassStatus struct {
	PassID     string           `json:"pass_id"`
	Running    bool             `json:"running"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Counters   harvest.Counters `json:"counters"`
}

// StatusStore holds the latest pass status for the HTTP surface. The
// orchestrator writes it; handlers read it.
type StatusStore struct {
	mu     sync.RWMutex
	status PassStatus
	seen   bool
}

// NewStatusStore returns an empty StatusStore.
func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

// PassStarted records the beginning of a pass.
func (s *StatusStore) PassStarted(passID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = PassStatus{PassID: passID, Running: true, StartedAt: at}
	s.seen = true
}

// PassFinished records the end of the current pass with its counters.
func (s *StatusStore) PassFinished(at time.Time, counters harvest.Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.FinishedAt = &at
	s.status.Counters = counters
}

// Latest returns the most recent pass status and whether one exists yet.
func (s *StatusStore) Latest() (PassStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.seen
}
