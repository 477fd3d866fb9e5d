package ptzengine

import (
	"sort"
	"time"
)

// maxTenureBonus and tenureDivisor implement spec.md §4.4's
// tenure_bonus = min(time_tracked/10, 0.2).
const tenureDivisor = 10.0
const maxTenureBonus = 0.2

// score returns the weighted priority for a track (spec.md §4.4). It never
// mutates the track; callers assign the result to PriorityScore.
func score(tr *Track, cfg Config, now time.Time) float64 {
	scoreConf := tr.MeanConfidence()

	scoreMove := 0.0
	if tr.Moving {
		scoreMove = clamp(tr.Speed*10, 0, 1)
	}

	areaRatio := tr.MeanArea
	scoreSize := clamp(areaRatio*4, 0, 1)

	scoreProx := 1 - tr.LastPosition().centreDistance()

	tenureBonus := tr.TimeTracked(now).Seconds() / tenureDivisor
	if tenureBonus > maxTenureBonus {
		tenureBonus = maxTenureBonus
	}

	p := cfg.Priority
	return p.WConfidence*scoreConf +
		p.WMovement*scoreMove +
		p.WSize*scoreSize +
		p.WProximity*scoreProx +
		tenureBonus
}

// rescoreAll recomputes PriorityScore for every live track.
func rescoreAll(s *store, cfg Config, now time.Time) {
	for _, id := range s.ids() {
		tr := s.tracks[id]
		tr.PriorityScore = score(tr, cfg, now)
	}
}

// rankedByPriority returns live track ids ordered by descending priority,
// with ties broken by ascending id (spec.md §4.4: "Ordering of tracks by
// priority is total; ties broken by track id ascending").
func rankedByPriority(s *store) []int {
	ids := s.ids()
	sort.SliceStable(ids, func(i, j int) bool {
		ti, tj := s.tracks[ids[i]], s.tracks[ids[j]]
		if ti.PriorityScore != tj.PriorityScore {
			return ti.PriorityScore > tj.PriorityScore
		}
		return ti.ID < tj.ID
	})
	return ids
}
