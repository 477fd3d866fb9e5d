package ptzengine

import (
	"math"
	"time"
)

const maxHistory = 20
const motionWindow = 5

// Track is a persistent hypothesis about one physical object, built from
// successive detections (spec.md §3). It is owned exclusively by the engine;
// external callers observe it only through Snapshot.
type Track struct {
	ID int

	history           []Position
	confidenceHistory []float64
	timestamps        []time.Time

	VX, VY float64
	Speed  float64
	Moving bool

	// Direction is atan2(vy, vx) in radians, a SPEC_FULL.md supplement from
	// the Python original; unused by priority scoring.
	Direction float64

	MeanArea      float64
	SizeStability float64
	// ShapeRatio is mean(w/h) over the recent history, a SPEC_FULL.md
	// supplement; unused by priority scoring.
	ShapeRatio float64

	FirstSeen         time.Time
	LastSeen          time.Time
	FramesTracked     int
	TotalTrackingTime time.Duration

	IsPrimary        bool
	LastTargetedTime time.Time

	PriorityScore float64
}

// newTrack creates a track from its first detection sample.
func newTrack(id int, pos Position, confidence float64, t time.Time) *Track {
	tr := &Track{
		ID:        id,
		FirstSeen: t,
		LastSeen:  t,
	}
	tr.appendSample(pos, confidence, t)
	return tr
}

// appendSample records a new detection for the track and recomputes every
// derived statistic. Called only by the associator (new sample) or by
// internal bookkeeping; scorer/selector only read Track fields.
func (tr *Track) appendSample(pos Position, confidence float64, t time.Time) {
	tr.history = append(tr.history, pos)
	tr.confidenceHistory = append(tr.confidenceHistory, confidence)
	tr.timestamps = append(tr.timestamps, t)
	if len(tr.history) > maxHistory {
		over := len(tr.history) - maxHistory
		tr.history = tr.history[over:]
		tr.confidenceHistory = tr.confidenceHistory[over:]
		tr.timestamps = tr.timestamps[over:]
	}
	tr.LastSeen = t
	tr.FramesTracked++
	tr.recomputeMotion()
	tr.recomputeSize()
}

// recomputeMotion derives (vx, vy), speed, direction from the last
// <=motionWindow samples (spec.md §3: "averaged over last <=5 samples").
// "Moving" is left to refreshMoving, since the movement epsilon is a
// per-engine configuration value the track itself doesn't hold.
func (tr *Track) recomputeMotion() {
	n := len(tr.history)
	if n < 2 {
		tr.VX, tr.VY, tr.Speed = 0, 0, 0
		return
	}
	start := 0
	if n > motionWindow {
		start = n - motionWindow
	}
	var sumVX, sumVY float64
	var count int
	for i := start + 1; i < n; i++ {
		dt := tr.timestamps[i].Sub(tr.timestamps[i-1]).Seconds()
		if dt <= 0 {
			continue
		}
		dx := tr.history[i].CX - tr.history[i-1].CX
		dy := tr.history[i].CY - tr.history[i-1].CY
		sumVX += dx / dt
		sumVY += dy / dt
		count++
	}
	if count == 0 {
		tr.VX, tr.VY, tr.Speed = 0, 0, 0
		return
	}
	tr.VX = sumVX / float64(count)
	tr.VY = sumVY / float64(count)
	tr.Speed = math.Sqrt(tr.VX*tr.VX + tr.VY*tr.VY)
	if math.Abs(tr.VX) > 1e-6 || math.Abs(tr.VY) > 1e-6 {
		tr.Direction = math.Atan2(tr.VY, tr.VX)
	}
}

// refreshMoving re-evaluates Moving against the engine's configured movement
// epsilon (ε_move, spec.md §3); the store calls this right after
// appendSample, since Track has no config of its own.
func (tr *Track) refreshMoving(epsilon float64) {
	tr.Moving = tr.Speed > epsilon
}

// recomputeSize derives mean area and size stability over the last 10
// samples (spec.md §3: ā = mean(area), s = 1/(1+var/ā)), plus the
// SPEC_FULL.md shape-ratio supplement.
func (tr *Track) recomputeSize() {
	n := len(tr.history)
	if n == 0 {
		return
	}
	start := 0
	if n > 10 {
		start = n - 10
	}
	window := tr.history[start:]
	var sumArea, sumRatio float64
	var ratioCount int
	for _, p := range window {
		sumArea += p.Area()
		if p.H > 0 {
			sumRatio += p.W / p.H
			ratioCount++
		}
	}
	meanArea := sumArea / float64(len(window))
	tr.MeanArea = meanArea
	if ratioCount > 0 {
		tr.ShapeRatio = sumRatio / float64(ratioCount)
	}
	if len(window) > 1 && meanArea > 0 {
		var variance float64
		for _, p := range window {
			d := p.Area() - meanArea
			variance += d * d
		}
		variance /= float64(len(window))
		tr.SizeStability = 1.0 / (1.0 + variance/meanArea)
	} else {
		tr.SizeStability = 0
	}
}

// LastPosition returns the most recent detection sample.
func (tr *Track) LastPosition() Position {
	return tr.history[len(tr.history)-1]
}

// MeanConfidence returns the average of the confidence history.
func (tr *Track) MeanConfidence() float64 {
	if len(tr.confidenceHistory) == 0 {
		return 0
	}
	var sum float64
	for _, c := range tr.confidenceHistory {
		sum += c
	}
	return sum / float64(len(tr.confidenceHistory))
}

// TimeTracked returns how long the track has existed, as of now.
func (tr *Track) TimeTracked(now time.Time) time.Duration {
	return now.Sub(tr.FirstSeen)
}

// HistoryLen reports the current history length (bounded by maxHistory).
func (tr *Track) HistoryLen() int {
	return len(tr.history)
}

// Snapshot is the serialisable, reference-free view of a Track handed to
// observers (spec.md §4.9, §6: "never live references").
type Snapshot struct {
	ID                int
	Position          Position
	Confidence        float64
	VX, VY            float64
	Speed             float64
	Moving            bool
	Direction         float64
	MeanArea          float64
	SizeStability     float64
	ShapeRatio        float64
	FirstSeen         time.Time
	LastSeen          time.Time
	FramesTracked     int
	TotalTrackingTime time.Duration
	IsPrimary         bool
	PriorityScore     float64
}

// Snapshot produces a copy-only view of the track, safe to hand to
// callbacks or a status query without exposing the live object.
func (tr *Track) Snapshot() Snapshot {
	var pos Position
	var conf float64
	if len(tr.history) > 0 {
		pos = tr.LastPosition()
		conf = tr.confidenceHistory[len(tr.confidenceHistory)-1]
	}
	return Snapshot{
		ID:                tr.ID,
		Position:          pos,
		Confidence:        conf,
		VX:                tr.VX,
		VY:                tr.VY,
		Speed:             tr.Speed,
		Moving:            tr.Moving,
		Direction:         tr.Direction,
		MeanArea:          tr.MeanArea,
		SizeStability:     tr.SizeStability,
		ShapeRatio:        tr.ShapeRatio,
		FirstSeen:         tr.FirstSeen,
		LastSeen:          tr.LastSeen,
		FramesTracked:     tr.FramesTracked,
		TotalTrackingTime: tr.TotalTrackingTime,
		IsPrimary:         tr.IsPrimary,
		PriorityScore:     tr.PriorityScore,
	}
}
