package state

import "time"

// Sync describes the network status of one store.
type Sync struct {
	Loading             bool
	Error               string // message of the last failure, cleared on success
	LastUpdated         time.Time
	ConsecutiveFailures int
	inflight            int
}

// IsOffline returns true when the backend has been unreachable for multiple
// consecutive operations.
func (s Sync) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Start marks an operation in flight.
func (s *Sync) Start() {
	s.inflight++
	s.Loading = true
}

// Succeed records a successful operation.
func (s *Sync) Succeed() {
	s.finish()
	s.Error = ""
	s.LastUpdated = time.Now()
	s.ConsecutiveFailures = 0
}

// Fail records a failed operation, keeping the previous data untouched.
func (s *Sync) Fail(message string) {
	s.finish()
	s.Error = message
	s.LastUpdated = time.Now()
	s.ConsecutiveFailures++
}

// Settle ends an operation without changing error state (superseded fetches).
func (s *Sync) Settle() {
	s.finish()
}

func (s *Sync) finish() {
	if s.inflight > 0 {
		s.inflight--
	}
	s.Loading = s.inflight > 0
}
