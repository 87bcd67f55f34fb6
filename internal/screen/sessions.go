package screen

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// janitorInterval is how often idle sessions are checked for eviction.
const janitorInterval = time.Minute

// Store maps browser session tokens to their screen controllers. Sessions
// live in memory only; an idle session is evicted by the janitor after the
// configured TTL and its previews released with it.
type Store struct {
	predictor Predictor
	ttl       time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// NewStore creates a session store whose controllers submit through the
// given predictor.
func NewStore(predictor Predictor, ttl time.Duration) *Store {
	return &Store{
		predictor: predictor,
		ttl:       ttl,
		sessions:  make(map[string]*sessionEntry),
	}
}

// GetOrCreate returns the controller for token, creating a fresh session
// when the token is empty or unknown. The returned token identifies the
// session and is set as the browser's cookie.
func (s *Store) GetOrCreate(token string) (string, *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[token]; ok {
		entry.lastSeen = time.Now()
		return token, entry.controller
	}

	token = newToken()
	controller := NewController(s.predictor)
	s.sessions[token] = &sessionEntry{
		controller: controller,
		lastSeen:   time.Now(),
	}
	log.Debug().Str("session", token).Msg("new screen session")
	return token, controller
}

// Get returns the controller for token without creating one.
func (s *Store) Get(token string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.controller, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run evicts idle sessions until the context is cancelled.
func (s *Store) Run(ctx context.Context) {
	log.Info().Dur("ttl", s.ttl).Msg("starting session janitor")

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session janitor stopped")
			return
		case <-ticker.C:
			s.evictIdle(time.Now())
		}
	}
}

// evictIdle removes sessions not seen since now-ttl and releases their
// resources.
func (s *Store) evictIdle(now time.Time) {
	s.mu.Lock()
	var evicted []*Controller
	for token, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.ttl {
			evicted = append(evicted, entry.controller)
			delete(s.sessions, token)
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	// Close outside the store lock; Close takes the controller mutex.
	for _, controller := range evicted {
		controller.Close()
	}
	if len(evicted) > 0 {
		log.Info().Int("evicted", len(evicted)).Int("remaining", remaining).Msg("evicted idle sessions")
	}
}
