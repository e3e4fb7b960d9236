package auth

import (
	"sync"
	"time"
)

// TokenRevocationStore remembers signed-out session tokens until they would
// have expired on their own. It also supports cutting off every token of a
// subject issued before a point in time, used when an identity is deleted.
// Safe for concurrent use; the lock is never held across I/O.
type TokenRevocationStore struct {
	mu       sync.RWMutex
	entries  map[string]revocationEntry // jti -> entry
	subjects map[string]subjectCutoff   // subject -> cutoff
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type revocationEntry struct {
	ExpiresAt time.Time
	Subject   string
}

type subjectCutoff struct {
	IssuedBefore time.Time
	Until        time.Time
}

// NewTokenRevocationStore creates a store and starts a goroutine that drops
// expired entries every interval.
func NewTokenRevocationStore(interval time.Duration) *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries:  make(map[string]revocationEntry),
		subjects: make(map[string]subjectCutoff),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop(interval)
	return s
}

// Revoke marks a token's jti as revoked until expiresAt.
func (s *TokenRevocationStore) Revoke(jti, subject string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt, Subject: subject}
}

// RevokeSubject revokes every token of subject issued up to now. maxTTL bounds
// how long the cutoff must be remembered.
func (s *TokenRevocationStore) RevokeSubject(subject string, maxTTL time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject] = subjectCutoff{IssuedBefore: now, Until: now.Add(maxTTL)}
}

// IsRevoked reports whether the token identified by jti, belonging to
// subject and issued at issuedAt, has been revoked.
func (s *TokenRevocationStore) IsRevoked(jti, subject string, issuedAt time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[jti]; ok {
		return true
	}
	if cut, ok := s.subjects[subject]; ok && !issuedAt.After(cut.IssuedBefore) {
		return true
	}
	return false
}

// Count returns the number of individually revoked tokens.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *TokenRevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *TokenRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *TokenRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
	for subject, cut := range s.subjects {
		if now.After(cut.Until) {
			delete(s.subjects, subject)
		}
	}
}
