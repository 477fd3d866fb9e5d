package ptzengine

import "time"

// TrackingState is the C5 state machine (spec.md §4.5), extended with the
// two preset-transit sub-states spec.md §9(c) calls out as referenced but
// undefined in the original source, and resolved in SPEC_FULL.md's
// supplemented-features section: tracking commands are queued, not dropped,
// while the camera is mid-transit to a preset.
type TrackingState int

const (
	StateIdle TrackingState = iota
	StateFollowPrimary
	StateFollowSecondary
	StateLost
	StateMovingToPreset
	StateWaitingAtPreset
)

func (s TrackingState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFollowPrimary:
		return "follow_primary"
	case StateFollowSecondary:
		return "follow_secondary"
	case StateLost:
		return "lost"
	case StateMovingToPreset:
		return "moving_to_preset"
	case StateWaitingAtPreset:
		return "waiting_at_preset"
	default:
		return "unknown"
	}
}

// selector holds C5's state: the tracking sub-state machine, independent of
// the session lifecycle state (Idle/Active/Error, C9).
type selector struct {
	state           TrackingState
	roleStartedAt   time.Time
	lastSwitchAt    time.Time
	secondaryID     int
	formerPrimaryID int // used by FOLLOW_SECONDARY to swap back
	presetResumeAt  time.Time
}

func newSelector() *selector {
	return &selector{state: StateIdle}
}

// switchEvent is emitted whenever the selector changes which track is
// primary (spec.md §4.5: "At every role change emit target_switched").
type switchEvent struct {
	oldID, newID int
}

// tick advances the selector by one control-loop iteration. cfg governs
// dwell/switch-interval thresholds; st is the track store (read/written for
// primary role only, via setPrimary).
func (sel *selector) tick(st *store, cfg Config, now time.Time) (switched *switchEvent, lostPrimary bool) {
	switch sel.state {
	case StateIdle:
		if st.count() == 0 {
			return nil, false
		}
		ranked := rankedByPriority(st)
		newPrimary := ranked[0]
		st.setPrimary(newPrimary)
		sel.state = StateFollowPrimary
		sel.roleStartedAt = now
		sel.lastSwitchAt = now
		return &switchEvent{oldID: 0, newID: newPrimary}, false

	case StateFollowPrimary:
		primary := st.currentPrimary()
		if primary == nil {
			sel.state = StateIdle
			return nil, true
		}
		dwell := now.Sub(sel.roleStartedAt)
		sinceSwitch := now.Sub(sel.lastSwitchAt)
		dwellDue := dwell.Seconds() >= cfg.Alternation.PrimaryDwell
		forceDue := sinceSwitch.Seconds() >= cfg.Alternation.MaxSwitchInterval
		if cfg.Alternation.Enabled && (dwellDue || forceDue) {
			if st.count() >= 2 && sinceSwitch.Seconds() >= cfg.Alternation.MinSwitchInterval {
				ranked := rankedByPriority(st)
				// ranked[0] should be the current primary; pick the next-
				// ranked track as the alternate.
				var secondIdx int
				for i, id := range ranked {
					if id != primary.ID {
						secondIdx = i
						break
					}
				}
				newSecondary := ranked[secondIdx]
				sel.formerPrimaryID = primary.ID
				sel.secondaryID = newSecondary
				st.setPrimary(newSecondary)
				sel.state = StateFollowSecondary
				sel.roleStartedAt = now
				sel.lastSwitchAt = now
				return &switchEvent{oldID: primary.ID, newID: newSecondary}, false
			}
		}
		return nil, false

	case StateFollowSecondary:
		primary := st.currentPrimary()
		if primary == nil {
			sel.state = StateIdle
			return nil, true
		}
		dwell := now.Sub(sel.roleStartedAt)
		if dwell.Seconds() >= cfg.Alternation.SecondaryDwell {
			oldID := primary.ID
			var newPrimary int
			if former := st.get(sel.formerPrimaryID); former != nil {
				newPrimary = former.ID
			} else {
				ranked := rankedByPriority(st)
				newPrimary = ranked[0]
			}
			st.setPrimary(newPrimary)
			sel.state = StateFollowPrimary
			sel.roleStartedAt = now
			sel.lastSwitchAt = now
			return &switchEvent{oldID: oldID, newID: newPrimary}, false
		}
		return nil, false

	case StateLost:
		if st.count() > 0 {
			sel.state = StateIdle
			return sel.tick(st, cfg, now)
		}
		return nil, false

	case StateMovingToPreset, StateWaitingAtPreset:
		// Resumed externally via maybeResumeFromPreset; tick is a no-op here.
		return nil, false
	}
	return nil, false
}

// enterLost transitions the selector directly to LOST (spec.md §4.5: "no
// detections observed for object_timeout").
func (sel *selector) enterLost(now time.Time) {
	sel.state = StateLost
	sel.roleStartedAt = now
}

// beginPresetTransit preempts tracking for a goto_preset call (spec.md §6,
// SPEC_FULL.md supplement). Tracking resumes once maybeResumeFromPreset
// is called after PresetWait elapses in WaitingAtPreset.
func (sel *selector) beginPresetTransit(now time.Time) {
	sel.state = StateMovingToPreset
	sel.roleStartedAt = now
}

// enterWaitingAtPreset is called once the camera driver reports the preset
// transit complete.
func (sel *selector) enterWaitingAtPreset(now time.Time, wait time.Duration) {
	sel.state = StateWaitingAtPreset
	sel.presetResumeAt = now.Add(wait)
}

// maybeResumeFromPreset transitions back to IDLE (to re-derive a primary)
// once the configured wait has elapsed.
func (sel *selector) maybeResumeFromPreset(now time.Time) bool {
	if sel.state != StateWaitingAtPreset {
		return false
	}
	if now.Before(sel.presetResumeAt) {
		return false
	}
	sel.state = StateIdle
	return true
}

// inPresetTransit reports whether commands should be queued rather than
// dispatched (spec.md §6: "commands are queued until preset completion").
func (sel *selector) inPresetTransit() bool {
	return sel.state == StateMovingToPreset || sel.state == StateWaitingAtPreset
}
