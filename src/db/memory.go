package db

import (
	"context"
	"math"
	"sort"
	"sync"

	"wheelofmeals/src/types"
)

const DefaultMemoryLimit = 500

// MemoryStore keeps the most recent picks per user in process memory.
type MemoryStore struct {
	limit int

	mu    sync.RWMutex
	picks map[string][]types.Pick // newest first
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryStore{limit: limit, picks: make(map[string][]types.Pick)}
}

func (m *MemoryStore) SavePick(_ context.Context, pick types.Pick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]types.Pick{pick}, m.picks[pick.User]...)
	if len(list) > m.limit {
		list = list[:m.limit]
	}
	m.picks[pick.User] = list
	return nil
}

func (m *MemoryStore) GetPicks(_ context.Context, user string, limit, offset int) ([]types.Pick, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.picks[user]
	total := len(list)
	if offset >= total || limit <= 0 {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]types.Pick, end-offset)
	copy(out, list[offset:end])
	return out, total, nil
}

func (m *MemoryStore) GetNearbyPicks(_ context.Context, user string, origin types.GeoPoint, limit int) ([]types.Pick, error) {
	m.mu.RLock()
	out := append([]types.Pick(nil), m.picks[user]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return distanceKm(origin, out[i].Origin) < distanceKm(origin, out[j].Origin)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const earthRadiusKm = 6371.0

// distanceKm is the great-circle (haversine) distance between a and b.
func distanceKm(a, b types.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
