// Package session holds the per-user search session: it fetches candidates once per
// search and serves random picks from them until the next search or reset.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wheelofmeals/src/places"
	"wheelofmeals/src/selection"
	"wheelofmeals/src/types"
)

// Searcher fetches restaurant candidates; *places.Client implements it. loc is the
// caller's time zone for today's opening hours; nil means the searcher's own clock.
type Searcher interface {
	SearchIn(ctx context.Context, origin types.GeoPoint, radiusMeters float64, loc *time.Location) ([]types.Restaurant, error)
}

type Controller struct {
	searcher Searcher
	rnd      selection.RandIndex
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	// gen changes on every Search and Reset so a stale fetch cannot overwrite newer state.
	gen uint64
	// inFlight is set while the searcher is being called, even after a Reset.
	inFlight bool
}

type Option func(*Controller)

// WithRandIndex replaces the random source used for picks.
func WithRandIndex(rnd selection.RandIndex) Option {
	return func(c *Controller) { c.rnd = rnd }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func NewController(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		rnd:      selection.Uniform,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Search fetches a fresh candidate set and selects one restaurant from it, reading
// today's hours in the searcher's own time zone.
func (c *Controller) Search(ctx context.Context, origin types.GeoPoint, radiusMeters float64) State {
	return c.SearchIn(ctx, origin, radiusMeters, nil)
}

// SearchIn is Search with the caller's time zone. While a fetch is outstanding, including
// one abandoned by Reset, the call is ignored and the current state is returned.
func (c *Controller) SearchIn(ctx context.Context, origin types.GeoPoint, radiusMeters float64, loc *time.Location) State {
	c.mu.Lock()
	if c.inFlight {
		st := c.state
		c.mu.Unlock()
		c.log.Debug().Msg("Search already in flight, ignoring request")
		return st
	}
	c.inFlight = true
	c.gen++
	gen := c.gen
	c.state = c.state.searching(origin, radiusMeters)
	c.mu.Unlock()

	found, err := c.searcher.SearchIn(ctx, origin, radiusMeters, loc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	// A Reset during the fetch abandons its result.
	if c.gen != gen {
		return c.state
	}

	switch {
	case err != nil:
		kind := places.KindOf(err)
		c.log.Warn().Err(err).Str("kind", kind.String()).Msg("Restaurant search failed")
		c.state = c.state.failed(kind, err)
	case len(found) == 0:
		c.log.Info().Msg("No restaurants found")
		c.state = c.state.empty()
	default:
		chosen, excluded, err := selection.Select(found, nil, c.rnd)
		if err != nil {
			c.state = c.state.failed(types.ProviderError, err)
			break
		}
		c.state = c.state.selected(found, chosen, excluded)
	}
	return c.state
}

// Busy reports whether a fetch is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// PickAnother selects a different restaurant from the current candidate set. It does
// nothing unless the session holds a result.
func (c *Controller) PickAnother() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != Result || len(c.state.Candidates) == 0 {
		return c.state
	}
	chosen, excluded, err := selection.Select(c.state.Candidates, c.state.Excluded, c.rnd)
	if err != nil {
		return c.state
	}
	c.state = c.state.selected(c.state.Candidates, chosen, excluded)
	return c.state
}

// Reset returns the session to Idle, dropping candidates and the current pick. An
// outstanding fetch keeps running and its result is discarded; new searches are
// ignored until it returns.
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = State{}
	return c.state
}
