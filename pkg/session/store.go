// Package session owns the in-memory chat session lists and the
// current-session pointer, one Store per identity. All mutations are applied
// under a single lock and reconciled with the persistence layer inside the
// same operation, so callers never observe a partial update.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxd/pkg/logger"
	"voxd/pkg/models"
	"voxd/pkg/store"
)

// Store holds the sessions of a single identity, most-recent-first. An empty
// identity marks the anonymous store: it is memory-only and never persisted.
type Store struct {
	mu        sync.Mutex
	identity  string
	sessions  []models.ChatSession
	currentID string
}

// NewStore returns a store for the given identity with an empty session
// list. Call Load to pull previously persisted sessions.
func NewStore(identity string) *Store {
	return &Store{identity: identity, sessions: []models.ChatSession{}}
}

// Identity returns the identity owning this store (empty for anonymous).
func (s *Store) Identity() string { return s.identity }

// persistent reports whether mutations should be written through.
func (s *Store) persistent() bool { return s.identity != "" }

// Load replaces the in-memory list with the persisted one. Anonymous stores
// reset to empty. A current-session pointer referencing a session absent
// from the new list is invalidated.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.persistent() {
		s.sessions = []models.ChatSession{}
		s.currentID = ""
		return nil
	}
	loaded, err := store.LoadSessions(s.identity)
	if err != nil {
		return err
	}
	s.sessions = loaded
	if s.currentID != "" && s.indexOf(s.currentID) < 0 {
		s.currentID = ""
	}
	return nil
}

// persistLocked writes the session list through when the store is
// persistent. Callers must hold s.mu.
func (s *Store) persistLocked() error {
	if !s.persistent() {
		return nil
	}
	return store.SaveSessions(s.identity, s.sessions)
}

func (s *Store) indexOf(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// Create allocates a new session with a fresh id, default title and empty
// transcript, prepends it and makes it current.
func (s *Store) Create() (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	sess := models.ChatSession{
		ID:        uuid.NewString(),
		Title:     models.DefaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions = append([]models.ChatSession{sess}, s.sessions...)
	s.currentID = sess.ID
	if err := s.persistLocked(); err != nil {
		return models.ChatSession{}, err
	}
	logger.Info("session_created", zap.String("id", sess.ID), zap.String("identity", s.identity))
	return sess, nil
}

// Update merges the patch into the session matching id and refreshes
// UpdatedAt. An unknown id is a silent no-op, not an error.
func (s *Store) Update(id string, patch models.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, patch)
}

func (s *Store) updateLocked(id string, patch models.SessionPatch) error {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	sess := &s.sessions[i]
	if patch.Title != nil {
		sess.Title = *patch.Title
	}
	if patch.Messages != nil {
		sess.Messages = patch.Messages
	}
	now := time.Now().UTC()
	// UpdatedAt must strictly increase across mutations even when the
	// clock resolution is coarser than the mutation rate.
	if !now.After(sess.UpdatedAt) {
		now = sess.UpdatedAt.Add(time.Nanosecond)
	}
	sess.UpdatedAt = now
	return s.persistLocked()
}

// Delete removes the session matching id. Deleting the current session
// clears the current-session pointer; picking a replacement is the caller's
// concern.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	if s.currentID == id {
		s.currentID = ""
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	logger.Info("session_deleted", zap.String("id", id), zap.String("identity", s.identity))
	return nil
}

// AddMessage appends a message to the session matching id. The first message
// of a session also derives its title. An unknown id is a silent no-op.
func (s *Store) AddMessage(id string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	sess := s.sessions[i]
	msgs := append(append([]models.Message{}, sess.Messages...), msg)
	patch := models.SessionPatch{Messages: msgs}
	if len(sess.Messages) == 0 {
		title := models.DeriveTitle(msg.Content)
		patch.Title = &title
	}
	return s.updateLocked(id, patch)
}

// Get returns a copy of the session matching id.
func (s *Store) Get(id string) (models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.ChatSession{}, false
	}
	return cloneSession(s.sessions[i]), true
}

// Sessions returns a copy of the session list, most-recent-first.
func (s *Store) Sessions() []models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatSession, len(s.sessions))
	for i := range s.sessions {
		out[i] = cloneSession(s.sessions[i])
	}
	return out
}

// Current returns the current session, if any.
func (s *Store) Current() (models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID == "" {
		return models.ChatSession{}, false
	}
	i := s.indexOf(s.currentID)
	if i < 0 {
		return models.ChatSession{}, false
	}
	return cloneSession(s.sessions[i]), true
}

// SetCurrent points the current-session reference at id. Unknown ids clear
// the pointer.
func (s *Store) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		s.currentID = ""
		return
	}
	s.currentID = id
}

func cloneSession(in models.ChatSession) models.ChatSession {
	out := in
	out.Messages = append([]models.Message{}, in.Messages...)
	return out
}
