package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/stageflow/pkg/graph"
)

// MemoryStore is an in-process session store.
// Stored sessions are copied on Set and Get so callers can mutate freely.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if sess.IsExpired() {
		s.evict(sessionID, sess)
		return nil, nil
	}
	return clone(sess), nil
}

// evict deletes sessionID if it still maps to seen and has expired. A
// session refreshed by Set in the meantime is kept.
func (s *MemoryStore) evict(sessionID string, seen *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sessionID]; !ok || cur != seen || !cur.IsExpired() {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

func (s *MemoryStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func clone(sess *Session) *Session {
	c := *sess
	c.View.Edges = append([]graph.Edge(nil), sess.View.Edges...)
	return &c
}
