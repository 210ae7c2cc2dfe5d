// Package session keeps dispatch sessions for remote diagram consumers.
//
// The HTTP API hands every viewer a session id. Each event the viewer
// sends is applied to the stored [dispatch.Session] and the recomputed
// graph is returned. Sessions live in memory and expire after a TTL;
// nothing is persisted across restarts.
//
// # Usage
//
//	store := session.NewMemoryStore()
//	sess, err := session.New("returns", session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if sess == nil {
//	    // Unknown or expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/matzehuels/stageflow/pkg/dispatch"
)

// Session pairs view state with an id and an expiry.
type Session struct {
	ID        string           `json:"id"`
	View      dispatch.Session `json:"view"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch pushes the expiry ttl into the future.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the idle lifetime of a viewer session.
const DefaultTTL = 2 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a session viewing the given workflow.
func New(workflowID string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		View:      dispatch.NewSession(workflowID),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}
