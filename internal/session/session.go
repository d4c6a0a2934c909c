// Package session keeps the in-memory state of each dashboard visitor.
// Nothing here outlives the session: state is dropped once it expires
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelzeko/dengue-watch/internal/cases"
	"github.com/abelzeko/dengue-watch/internal/entities"
)

// Session is one visitor's scratch state. Methods serialize access, so
// overlapping requests from the same browser see consistent data
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	cases       *cases.Table
	predictions []entities.Prediction
	detections  []entities.WaterDetection
	lastSeen    time.Time // guarded by Store.mu
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		cases:     cases.NewSeededTable(),
		lastSeen:  now,
	}
}

// WithCases runs fn with exclusive access to the session's cases table
func (s *Session) WithCases(fn func(t *cases.Table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cases)
}

// AddPrediction appends an environmental prediction
func (s *Session) AddPrediction(p entities.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append(s.predictions, p)
}

// Predictions returns the stored predictions, most recent first
func (s *Session) Predictions() []entities.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Prediction, len(s.predictions))
	for i, p := range s.predictions {
		out[len(s.predictions)-1-i] = p
	}
	return out
}

// AddDetection appends a stagnant water classification
func (s *Session) AddDetection(d entities.WaterDetection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = append(s.detections, d)
}

// Detections returns the stored classifications, most recent first
func (s *Session) Detections() []entities.WaterDetection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.WaterDetection, len(s.detections))
	for i, d := range s.detections {
		out[len(s.detections)-1-i] = d
	}
	return out
}

// Store holds the live sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
	newID    func() string
}

// NewStore creates a store whose sessions expire after idle inactivity
func NewStore(idle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Get returns a live session and marks it as used. Expired sessions are
// dropped and reported as missing
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Create starts a new session with the seed cases table
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := newSession(s.newID(), s.now())
	s.sessions[sess.ID] = sess
	return sess
}

// Detached returns a seeded session that the store does not keep. It serves
// read-only requests that arrive without a session
func (s *Store) Detached() *Session {
	return newSession("", s.now())
}

// GetOrCreate returns the live session for id or starts a new one. The
// second result reports whether a new session was created
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Sweep drops expired sessions and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions held, including expired ones not yet swept
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.idle > 0 && now.Sub(sess.lastSeen) >= s.idle
}
