package memory

import (
	"context"
	"sync"
	"time"

	"stress-check-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
// Entries expire ttl after their last save; a zero ttl keeps them forever.
type ProgressStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]storedProgress
}

type storedProgress struct {
	progress  domain.Progress
	expiresAt time.Time
}

func NewProgressStore(ttl time.Duration) *ProgressStore {
	return &ProgressStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedProgress),
	}
}

func (s *ProgressStore) Save(_ context.Context, progress domain.Progress) error {
	entry := storedProgress{progress: cloneProgress(progress)}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[progress.SessionID] = entry
	return nil
}

func (s *ProgressStore) Load(_ context.Context, sessionID string) (domain.Progress, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	return cloneProgress(entry.progress), nil
}

func (s *ProgressStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (s *ProgressStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func cloneProgress(p domain.Progress) domain.Progress {
	answers := make(domain.SurveyResponse, len(p.Answers))
	for k, v := range p.Answers {
		answers[k] = v
	}
	p.Answers = answers
	return p
}
