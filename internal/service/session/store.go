package session

import (
	"context"
	"errors"
	"sync"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

var ErrSessionNotFound = errors.New("session not found")

// Store owns every conversation record. Callers re-fetch records by id per
// operation and never keep one across calls, so a swapped-in persistent
// implementation stays drop-in.
type Store interface {
	// GetOrCreate returns the record for sessionID, refreshing its identity
	// from the supplied value, or provisions a fresh one. Never fails for a
	// well-formed id.
	GetOrCreate(ctx context.Context, sessionID string, identity conversation.Identity) *conversation.Record
	// Get looks a record up without side effects.
	Get(ctx context.Context, sessionID string) (*conversation.Record, error)
	// Remove deletes the record if present, reporting whether a deletion
	// occurred. The evicted record is returned so callers can still read it
	// for farewell copy. Idempotent.
	Remove(ctx context.Context, sessionID string) (*conversation.Record, bool)
}

// MemoryStore keeps records in process memory. The mutex guards the map;
// record contents are serialized per session by the engine.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*conversation.Record
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*conversation.Record)}
}

// GetOrCreate returns the existing record for sessionID or creates one.
// Identity components arriving empty keep their previous values, matching
// how transports resend partial profile data.
func (s *MemoryStore) GetOrCreate(_ context.Context, sessionID string, identity conversation.Identity) *conversation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[sessionID]; ok {
		if identity.DisplayName != "" {
			rec.Identity.DisplayName = identity.DisplayName
		}
		if identity.Locale != "" {
			rec.Identity.Locale = identity.Locale
		}
		return rec
	}

	rec := conversation.NewRecord(sessionID, identity)
	s.records[sessionID] = rec
	return rec
}

// Get retrieves a record by session id.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*conversation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rec, nil
}

// Remove deletes the record for sessionID and returns it.
func (s *MemoryStore) Remove(_ context.Context, sessionID string) (*conversation.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, false
	}
	delete(s.records, sessionID)
	return rec, true
}
