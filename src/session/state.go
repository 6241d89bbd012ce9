package session

import (
	"wheelofmeals/src/selection"
	"wheelofmeals/src/types"
)

type Status int

const (
	Idle Status = iota
	Searching
	Result
	Empty
	Failed
)

func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Result:
		return "result"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// State is a snapshot of one search session. Controllers replace it wholesale and
// never modify a State they have handed out.
type State struct {
	Status       Status
	Origin       types.GeoPoint
	RadiusMeters float64
	Candidates   []types.Restaurant
	Excluded     selection.Set
	Selected     *types.Restaurant
	ErrKind      types.ErrorKind
	Err          error
}

// Seen is the number of candidates shown since the last full cycle.
func (s State) Seen() int {
	return s.Excluded.Len()
}

func (s State) Outcome() types.SearchOutcome {
	switch s.Status {
	case Result:
		return types.SearchOutcome{Kind: types.OutcomeSelected, Restaurant: s.Selected}
	case Empty:
		return types.SearchOutcome{Kind: types.OutcomeEmpty}
	case Failed:
		return types.SearchOutcome{Kind: types.OutcomeFailed, ErrorKind: s.ErrKind}
	default:
		return types.SearchOutcome{Kind: types.OutcomePending}
	}
}

func (s State) searching(origin types.GeoPoint, radius float64) State {
	s = s.empty()
	s.Status = Searching
	s.Origin = origin
	s.RadiusMeters = radius
	s.ErrKind = types.KindNone
	s.Err = nil
	return s
}

func (s State) selected(candidates []types.Restaurant, chosen types.Restaurant, excluded selection.Set) State {
	s.Status = Result
	s.Candidates = candidates
	s.Excluded = excluded
	s.Selected = &chosen
	s.ErrKind = types.KindNone
	s.Err = nil
	return s
}

func (s State) empty() State {
	s.Status = Empty
	s.Candidates = nil
	s.Excluded = nil
	s.Selected = nil
	return s
}

func (s State) failed(kind types.ErrorKind, err error) State {
	s = s.empty()
	s.Status = Failed
	s.ErrKind = kind
	s.Err = err
	return s
}
