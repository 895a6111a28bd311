package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is the fixed session lifetime, set once at creation.
	DefaultTTL = 30 * time.Minute
	// DefaultReapInterval is how often the reaper sweeps expired entries.
	DefaultReapInterval = 60 * time.Second
)

var (
	// ErrDuplicateScene is returned when creating a scene ID that already exists
	ErrDuplicateScene = errors.New("scene ID already exists")
	// ErrSceneNotFound is returned when the scene ID is unknown
	ErrSceneNotFound = errors.New("scene not found")
	// ErrWrongState is returned when a guarded transition finds another state
	ErrWrongState = errors.New("session not in expected state")
)

// Store is the five-operation session table plus the guarded transition.
// A different backing implementation (an external keyed store with atomic
// compare-and-swap) can be swapped in behind this interface without touching
// the orchestrator.
type Store interface {
	Create(sceneID, ip, userAgent string) (*Session, error)
	Get(sceneID string) (*Session, bool)
	Update(sceneID string, patch Patch) bool
	Transition(sceneID string, from, to State, patch Patch) (*Session, error)
	IsValid(sceneID string) bool
	ActiveForUser(userID string) []*Session
	TerminateAllForUser(userID string) int
}

// MemoryStore is the in-process session table. One mutex guards the map;
// every mutation and every whole-table enumeration (including the reaper
// sweep) is mutually exclusive with all others. Cardinality is low and
// lifetimes are short, so a single lock is sufficient.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	// onReap is invoked outside the lock with the number of swept entries.
	onReap func(int)
}

// NewMemoryStore creates the store and starts its reaper. Construct it once
// at the composition root and call Stop for clean shutdown; otherwise the
// reaper goroutine and its ticker leak across test runs.
func NewMemoryStore(ttl, reapInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if reapInterval <= 0 {
		reapInterval = DefaultReapInterval
	}
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.reapLoop(reapInterval)
	return s
}

// SetReapHook registers a callback receiving the swept-entry count after
// each reaper pass. Used for metrics.
func (s *MemoryStore) SetReapHook(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReap = fn
}

// Stop halts the reaper. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// Create inserts a fresh waiting session. The caller guarantees scene-ID
// uniqueness via the scene identifier; a duplicate is an error.
func (s *MemoryStore) Create(sceneID, ip, userAgent string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sceneID]; exists {
		return nil, ErrDuplicateScene
	}

	now := s.now()
	sess := &Session{
		SceneID:   sceneID,
		State:     StateWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	s.sessions[sceneID] = sess
	return clone(sess), nil
}

// Get returns a copy of the session, or false if the scene ID is unknown.
// A logically expired entry stays readable until the next sweep; callers
// needing validity must use IsValid or check ExpiresAt themselves.
func (s *MemoryStore) Get(sceneID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sceneID]
	if !ok {
		return nil, false
	}
	return clone(sess), true
}

// Update merges the patch unconditionally. Legal transition ordering is the
// caller's concern; use Transition for a guarded state change. Returns false
// if the scene ID is unknown.
func (s *MemoryStore) Update(sceneID string, patch Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sceneID]
	if !ok {
		return false
	}
	s.apply(sess, patch)
	return true
}

// Transition applies the patch only if the session currently holds the
// expected state: a compare-and-set under the table lock, so concurrent
// racers on the same scene yield exactly one winner.
func (s *MemoryStore) Transition(sceneID string, from, to State, patch Patch) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sceneID]
	if !ok {
		return nil, ErrSceneNotFound
	}
	if sess.State != from {
		return nil, ErrWrongState
	}
	patch.State = &to
	s.apply(sess, patch)
	return clone(sess), nil
}

// apply merges a patch; the caller holds the lock. ScannedAt/ConfirmedAt are
// set exactly once, the first time the corresponding state is reached, so
// re-applying the same transition never overwrites them.
func (s *MemoryStore) apply(sess *Session, patch Patch) {
	if patch.State != nil {
		sess.State = *patch.State
		now := s.now()
		switch *patch.State {
		case StateScanned:
			if sess.ScannedAt == nil {
				sess.ScannedAt = &now
			}
		case StateConfirmed:
			if sess.ConfirmedAt == nil {
				sess.ConfirmedAt = &now
			}
		}
	}
	if patch.UserID != nil {
		sess.UserID = *patch.UserID
	}
	if patch.Token != nil {
		sess.Token = *patch.Token
	}
	if patch.Device != nil {
		d := *patch.Device
		sess.Device = &d
	}
}

// IsValid reports whether the session exists, is unexpired and not in the
// expired state. The read-time expiry check is deliberate: reaper staleness
// must never be observable as "valid".
func (s *MemoryStore) IsValid(sceneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sceneID]
	if !ok {
		return false
	}
	return sess.State != StateExpired && sess.ExpiresAt.After(s.now())
}

// ActiveForUser returns the user's confirmed, unexpired sessions — their
// logged-in devices.
func (s *MemoryStore) ActiveForUser(userID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.State == StateConfirmed && sess.ExpiresAt.After(now) {
			out = append(out, clone(sess))
		}
	}
	return out
}

// TerminateAllForUser force-expires every session of the user regardless of
// current state ("log out everywhere") and returns the count affected.
func (s *MemoryStore) TerminateAllForUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			sess.State = StateExpired
			sess.ExpiresAt = now
			count++
		}
	}
	return count
}

// Len reports the number of entries still in the table, swept or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) reapLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			reaped, hook := s.reap()
			if reaped > 0 {
				slog.Debug("Reaped expired sessions", "count", reaped)
			}
			if hook != nil {
				hook(reaped)
			}
		}
	}
}

// reap hard-deletes every entry whose expiry has passed. It holds the lock
// for a single full-table pass and nothing more.
func (s *MemoryStore) reap() (int, func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, s.onReap
}
