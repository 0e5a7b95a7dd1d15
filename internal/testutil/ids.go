package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates run IDs "run-0001", "run-0002", ... so recorded
// runs compare byte-for-byte across test executions.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu   sync.Mutex
	next int64
}

// NewSequentialIDs creates a generator whose first ID is "run-0001".
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Generate returns the next run ID.
func (s *SequentialIDs) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("run-%04d", s.next)
}

// Reset restarts the sequence at "run-0001".
func (s *SequentialIDs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}
