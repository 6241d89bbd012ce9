// Package selection picks a random restaurant from a candidate list without repeating
// one until every candidate has been shown.
package selection

import (
	"errors"
	"math/rand/v2"

	"wheelofmeals/src/types"
)

var ErrNoCandidates = errors.New("selection: no candidates")

// RandIndex returns an index in [0, n). n is always positive.
type RandIndex func(n int) int

// Uniform draws from the global math/rand/v2 source.
func Uniform(n int) int {
	return rand.IntN(n)
}

// Set holds the ids already shown in the current cycle. Select never modifies the
// set it is given.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Select returns a candidate whose id is not in excluded together with the exclusion
// set extended by that id. Ids in excluded that name no candidate are dropped. Once every candidate is excluded the cycle restarts from an
// empty set. excluded is never modified.
func Select(candidates []types.Restaurant, excluded Set, rnd RandIndex) (types.Restaurant, Set, error) {
	if len(candidates) == 0 {
		return types.Restaurant{}, nil, ErrNoCandidates
	}
	if rnd == nil {
		rnd = Uniform
	}

	// Only ids of the current candidates carry over.
	shown := make(Set, len(excluded))
	eligible := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if excluded.Has(c.ID) {
			shown[c.ID] = struct{}{}
		} else {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		shown = make(Set)
		for i := range candidates {
			eligible = append(eligible, i)
		}
	}

	n := rnd(len(eligible)) % len(eligible)
	if n < 0 {
		n += len(eligible)
	}
	chosen := candidates[eligible[n]]
	shown[chosen.ID] = struct{}{}
	return chosen, shown, nil
}
