package ptzengine

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestStoreInsertAssignsIncreasingIDs(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	tr1 := s.insert(Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr2 := s.insert(Position{CX: 0.9, CY: 0.9, W: 0.1, H: 0.1}, 0.9, t0)
	test.That(t, tr1.ID, test.ShouldEqual, 1)
	test.That(t, tr2.ID, test.ShouldEqual, 2)
	test.That(t, s.count(), test.ShouldEqual, 2)
}

func TestStoreUpdateDropsOutOfOrderSample(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	tr := s.insert(Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	s.update(tr.ID, Position{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, 0.9, t0.Add(-time.Second))
	test.That(t, s.get(tr.ID).HistoryLen(), test.ShouldEqual, 1)
}

func TestStorePruneRemovesStaleTracksAndClearsPrimary(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	tr := s.insert(Position{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, 0.9, t0)
	s.setPrimary(tr.ID)

	removed, primaryLost := s.prune(t0.Add(10*time.Second), time.Second)
	test.That(t, removed, test.ShouldResemble, []int{tr.ID})
	test.That(t, primaryLost, test.ShouldBeTrue)
	test.That(t, s.currentPrimary(), test.ShouldBeNil)
	test.That(t, s.count(), test.ShouldEqual, 0)
}

func TestSetPrimaryEnforcesSingleOwner(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	tr1 := s.insert(Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	tr2 := s.insert(Position{CX: 0.9, CY: 0.9, W: 0.1, H: 0.1}, 0.9, t0)

	s.setPrimary(tr1.ID)
	test.That(t, tr1.IsPrimary, test.ShouldBeTrue)
	s.setPrimary(tr2.ID)
	test.That(t, tr1.IsPrimary, test.ShouldBeFalse)
	test.That(t, tr2.IsPrimary, test.ShouldBeTrue)
}

func TestStoreIDsAreSortedAscending(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	s.insert(Position{CX: 0.1, CY: 0.1, W: 0.1, H: 0.1}, 0.9, t0)
	s.insert(Position{CX: 0.2, CY: 0.2, W: 0.1, H: 0.1}, 0.9, t0)
	s.insert(Position{CX: 0.3, CY: 0.3, W: 0.1, H: 0.1}, 0.9, t0)
	test.That(t, s.ids(), test.ShouldResemble, []int{1, 2, 3})
}

func TestAccrueTrackingTimeOnlyAffectsPrimary(t *testing.T) {
	s := newStore(0.01)
	t0 := time.Now()
	tr := s.insert(Position{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, 0.9, t0)
	s.setPrimary(tr.ID)
	s.accrueTrackingTime(2 * time.Second)
	test.That(t, s.get(tr.ID).TotalTrackingTime, test.ShouldEqual, 2*time.Second)
}
