package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultIdleTimeout is how long an unused session is kept. It matches the token lifetime.
const DefaultIdleTimeout = time.Hour

type entry struct {
	controller *Controller
	lastUsed   time.Time
}

// Registry keeps one Controller per user.
type Registry struct {
	searcher Searcher
	opts     []Option
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(searcher Searcher, log zerolog.Logger, opts ...Option) *Registry {
	return &Registry{
		searcher: searcher,
		opts:     opts,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the user's controller, creating it on first use.
func (r *Registry) Get(user string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[user]; ok {
		e.lastUsed = r.now()
		return e.controller
	}
	opts := append([]Option{WithLogger(r.log.With().Str("user", user).Logger())}, r.opts...)
	c := NewController(r.searcher, opts...)
	r.sessions[user] = &entry{controller: c, lastUsed: r.now()}
	return c
}

// Evict drops sessions unused for longer than idle. A session with an outstanding
// fetch is kept so its user cannot start a second one.
func (r *Registry) Evict(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	evicted := 0
	for user, e := range r.sessions {
		if e.lastUsed.Before(cutoff) && !e.controller.Busy() {
			delete(r.sessions, user)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunEviction calls Evict every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(idle); n > 0 {
				r.log.Info().Int("evicted", n).Int("active", r.Len()).Msg("Evicted idle sessions")
			}
		}
	}
}
