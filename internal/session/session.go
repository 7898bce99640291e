// Package session accumulates analysis records per session. Records live in
// memory for the lifetime of the session and are gone when it closes; there
// is no durable persistence.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// ErrSessionClosed is returned when appending to or reading a closed or
// unknown session.
var ErrSessionClosed = errors.New("session closed")

type session struct {
	records []models.AnalysisRecord
	nextSeq uint64
}

// Store holds all live sessions. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// NewSession registers a fresh session and returns its ID.
func (s *Store) NewSession() string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = &session{nextSeq: 1}
	s.mu.Unlock()
	return id
}

// Append stamps the record with the session's next sequence number and
// stores it. Sequence numbers are strictly increasing and gapless within a
// session, in append order.
func (s *Store) Append(sessionID string, record models.AnalysisRecord) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("append to session %s: %w", sessionID, ErrSessionClosed)
	}

	record.Sequence = sess.nextSeq
	sess.nextSeq++
	sess.records = append(sess.records, record)
	return record.Sequence, nil
}

// Records returns a copy of the session's records in append order.
func (s *Store) Records(sessionID string) ([]models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("read session %s: %w", sessionID, ErrSessionClosed)
	}

	out := make([]models.AnalysisRecord, len(sess.records))
	copy(out, sess.records)
	return out, nil
}

// Close drops the session and all of its records. Closing an unknown
// session is a no-op.
func (s *Store) Close(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
