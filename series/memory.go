package series

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps every series in memory as a date-sorted slice per key.
// It is the authoritative store for file-backed deployments and doubles as
// the snapshot store for batch bulk fetches.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[Key][]Point
}

// NewMemoryStore builds a store from the given points. Points are grouped by
// key and sorted by date; a later point with an identical date replaces the
// earlier one.
func NewMemoryStore(points []Point) *MemoryStore {
	s := &MemoryStore{points: make(map[Key][]Point)}
	s.Replace(points)
	return s
}

// Replace swaps the entire point collection. The refresh collaborator calls
// this after fetching a new upstream publication.
func (s *MemoryStore) Replace(points []Point) {
	grouped := make(map[Key][]Point)
	for _, p := range points {
		p.Date = Day(p.Date)
		grouped[p.Key()] = append(grouped[p.Key()], p)
	}
	for key, pts := range grouped {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
		deduped := pts[:0]
		for _, p := range pts {
			if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(p.Date) {
				deduped[n-1] = p
				continue
			}
			deduped = append(deduped, p)
		}
		grouped[key] = deduped
	}
	s.mu.Lock()
	s.points = grouped
	s.mu.Unlock()
}

// Len reports the number of points held for a key.
func (s *MemoryStore) Len(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points[key])
}

// Keys lists every (series, region) scope currently held.
func (s *MemoryStore) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, 0, len(s.points))
	for key := range s.points {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		return out[i].Region < out[j].Region
	})
	return out
}

func (s *MemoryStore) PointAt(ctx context.Context, key Key, date time.Time) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}
	date = Day(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.points[key]
	idx := sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(date) })
	if idx < len(pts) && pts[idx].Date.Equal(date) {
		return pts[idx], nil
	}
	return Point{}, ErrNoPoint
}

func (s *MemoryStore) PointsInRange(ctx context.Context, key Key, start, end time.Time) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, end = Day(start), Day(end)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.points[key]
	lo := sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(start) })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Date.After(end) })
	if lo >= hi {
		return nil, nil
	}
	out := make([]Point, hi-lo)
	copy(out, pts[lo:hi])
	return out, nil
}

func (s *MemoryStore) NearestOnOrBefore(ctx context.Context, key Key, date time.Time) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}
	date = Day(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.points[key]
	idx := sort.Search(len(pts), func(i int) bool { return pts[i].Date.After(date) })
	if idx == 0 {
		return Point{}, ErrNoPoint
	}
	return pts[idx-1], nil
}

func (s *MemoryStore) NearestAfter(ctx context.Context, key Key, date time.Time) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}
	date = Day(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.points[key]
	idx := sort.Search(len(pts), func(i int) bool { return pts[i].Date.After(date) })
	if idx >= len(pts) {
		return Point{}, ErrNoPoint
	}
	return pts[idx], nil
}
