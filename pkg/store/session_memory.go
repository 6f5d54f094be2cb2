package store

import (
	"sync"
	"time"

	"bloodbridge/internal/util"
)

// MemorySessionStore keeps sessions in-process with expiry. Used when no
// Redis is configured and in tests.
type MemorySessionStore struct {
	mu   sync.RWMutex
	sess map[string]memorySession
	ttl  time.Duration
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemorySessionStore{
		sess: make(map[string]memorySession),
		ttl:  ttl,
	}
}

func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	token := util.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess[token] = memorySession{
		userID:    userID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token, nil
}

func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.sess[token]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sess, token)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.userID, true, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sess, token)
	return nil
}
