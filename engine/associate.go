package ptzengine

import "time"

// Detection is the per-frame input from upstream object detectors (spec.md
// §3, "Detection (input)"). ClassTag and T are carried through to tracks
// only informationally; the associator does not gate on class.
type Detection struct {
	Position   Position
	Confidence float64
	ClassTag   string
	T          time.Time
}

// filterDetections drops detections below min_confidence or outside the
// configured size band (spec.md §4.3 step 1).
func filterDetections(dets []Detection, cfg FilterConfig) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < cfg.MinConfidence {
			continue
		}
		area := d.Position.Area()
		if area < cfg.MinSize || area > cfg.MaxSize {
			continue
		}
		out = append(out, d)
	}
	return out
}

// assignment is one greedy track<->detection match.
type assignment struct {
	trackID   int
	detection int // index into the filtered detection slice
}

// associate runs the two-pass greedy nearest-neighbour matcher of spec.md
// §4.3: existing tracks (in ascending id order) each claim their nearest
// still-available detection within an adaptive gate; unmatched detections
// become new tracks while capacity remains; the rest are dropped for this
// frame. Tie-break on equal distance favours the lower detection index.
//
// It never mutates the store; the engine applies the returned assignments.
func associate(s *store, dets []Detection, cfg Config) (filtered []Detection, matched []assignment, unmatchedNew []int, droppedForCapacity int) {
	filtered = filterDetections(dets, cfg.Filter)
	available := make([]bool, len(filtered))
	for i := range available {
		available[i] = true
	}

	for _, id := range s.ids() {
		tr := s.tracks[id]
		if len(available) == 0 {
			break
		}
		gate := cfg.BaseGate
		if tr.Moving {
			g := cfg.GateSpeedFactor * tr.Speed
			if g > 2*cfg.BaseGate {
				g = 2 * cfg.BaseGate
			}
			gate = g
		}

		bestIdx := -1
		bestDist := 0.0
		for i, d := range filtered {
			if !available[i] {
				continue
			}
			dist := euclidean(d.Position, tr.LastPosition()) +
				0.1*(absf(d.Position.W-tr.LastPosition().W)+absf(d.Position.H-tr.LastPosition().H))
			if dist > gate {
				continue
			}
			if bestIdx == -1 || dist < bestDist {
				bestIdx = i
				bestDist = dist
			}
		}
		if bestIdx != -1 {
			matched = append(matched, assignment{trackID: id, detection: bestIdx})
			available[bestIdx] = false
		}
	}

	capacityRemaining := cfg.Filter.MaxObjects - s.count()
	for i, ok := range available {
		if !ok {
			continue
		}
		if capacityRemaining > 0 {
			unmatchedNew = append(unmatchedNew, i)
			capacityRemaining--
		} else {
			droppedForCapacity++
		}
	}

	return filtered, matched, unmatchedNew, droppedForCapacity
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
