package ptzengine

import (
	"sort"
	"time"
)

// store holds the live track set (C2, spec.md §4.2). It has no lock of its
// own: the engine guards every call with its single engine-wide mutex
// (spec.md §5), so store methods assume exclusive access while running.
type store struct {
	tracks    map[int]*Track
	nextID    int
	primaryID int // 0 means "no primary"
	epsilon   float64
}

func newStore(movementEpsilon float64) *store {
	return &store{
		tracks:  make(map[int]*Track),
		nextID:  1,
		epsilon: movementEpsilon,
	}
}

// insert creates a new track from a detection and returns it. IDs are
// strictly increasing and never reused within a session (spec.md §8,
// invariant 2).
func (s *store) insert(pos Position, confidence float64, t time.Time) *Track {
	id := s.nextID
	s.nextID++
	tr := newTrack(id, pos, confidence, t)
	tr.refreshMoving(s.epsilon)
	s.tracks[id] = tr
	return tr
}

// update appends a new sample to an existing track.
func (s *store) update(id int, pos Position, confidence float64, t time.Time) {
	tr, ok := s.tracks[id]
	if !ok {
		return
	}
	if t.Before(tr.LastSeen) {
		// InvariantViolation: non-monotonic timestamp for this track. Drop
		// the sample, keep the track (spec.md §7).
		return
	}
	tr.appendSample(pos, confidence, t)
	tr.refreshMoving(s.epsilon)
}

// get returns a track by id, or nil.
func (s *store) get(id int) *Track {
	return s.tracks[id]
}

// count returns the number of live tracks.
func (s *store) count() int {
	return len(s.tracks)
}

// ids returns all live track ids in ascending order, for stable iteration
// (spec.md §4.3: "iteration order is stable by id").
func (s *store) ids() []int {
	out := make([]int, 0, len(s.tracks))
	for id := range s.tracks {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// prune removes tracks whose last_seen is older than timeout. It returns the
// ids of removed tracks, and whether the primary was among them (spec.md
// §4.2).
func (s *store) prune(now time.Time, timeout time.Duration) (removed []int, primaryLost bool) {
	for _, id := range s.ids() {
		tr := s.tracks[id]
		if now.Sub(tr.LastSeen) > timeout {
			removed = append(removed, id)
			if tr.IsPrimary {
				primaryLost = true
				s.primaryID = 0
			}
			delete(s.tracks, id)
		}
	}
	return removed, primaryLost
}

// currentPrimary returns the current primary track, or nil if none.
func (s *store) currentPrimary() *Track {
	if s.primaryID == 0 {
		return nil
	}
	return s.tracks[s.primaryID]
}

// setPrimary clears is_primary on every track and sets it on id (or clears
// it entirely if id == 0). This is the only path that may mutate IsPrimary,
// preserving "at most one track has is_primary = true" (spec.md §3, §8
// invariant 1).
func (s *store) setPrimary(id int) {
	if s.primaryID != 0 {
		if old := s.tracks[s.primaryID]; old != nil {
			old.IsPrimary = false
		}
	}
	s.primaryID = id
	if id != 0 {
		if tr := s.tracks[id]; tr != nil {
			tr.IsPrimary = true
		}
	}
}

// snapshot returns a serialisable copy of every live track.
func (s *store) snapshot() []Snapshot {
	ids := s.ids()
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tracks[id].Snapshot())
	}
	return out
}

// accrueTrackingTime adds dt to the primary track's total_tracking_time
// (spec.md §3: "time held as primary").
func (s *store) accrueTrackingTime(dt time.Duration) {
	if tr := s.currentPrimary(); tr != nil {
		tr.TotalTrackingTime += dt
	}
}
