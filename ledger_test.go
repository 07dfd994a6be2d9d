package main

import (
	"testing"
	"time"
)

func TestLedgerAggregatesDescendantDecks(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))

	parent, err := col.NewDeck("Languages", nil)
	if err != nil {
		t.Fatalf("failed to create parent deck: %v", err)
	}
	child, err := col.NewDeck("Spanish", parent)
	if err != nil {
		t.Fatalf("failed to create child deck: %v", err)
	}

	dayKey := col.currentDayKey()
	col.incrementNewIntroduced(parent.ID, dayKey)
	col.incrementNewIntroduced(child.ID, dayKey)
	col.incrementReviewDone(child.ID, dayKey)

	newIntroduced, reviewDone, err := col.getDeckTodayCounts(parent.ID)
	if err != nil {
		t.Fatalf("getDeckTodayCounts failed: %v", err)
	}
	if newIntroduced != 2 {
		t.Errorf("expected newIntroduced=2 aggregated across parent+child, got %d", newIntroduced)
	}
	if reviewDone != 1 {
		t.Errorf("expected reviewDone=1, got %d", reviewDone)
	}
}

func TestRemainingCapacityNeverNegative(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	cfg := col.DeckConfigs[1]
	cfg.New.PerDay = 3

	dayKey := col.currentDayKey()
	for i := 0; i < 5; i++ {
		col.incrementNewIntroduced(DefaultDeckID, dayKey)
	}

	rc, err := col.getRemainingCapacity(DefaultDeckID)
	if err != nil {
		t.Fatalf("getRemainingCapacity failed: %v", err)
	}
	if rc.NewRemaining != 0 {
		t.Errorf("expected newRemaining=0 when over cap, got %d", rc.NewRemaining)
	}
	if rc.CanShowNew {
		t.Errorf("expected canShowNew=false when cap is exhausted")
	}
}

// Monotonicity invariant from spec.md §8.
func TestDayNumberMonotonicInClock(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	crt := base.Unix() - 100_000
	d1 := dayNumber(crt, 0, base)
	d2 := dayNumber(crt, 0, base.Add(48*time.Hour))
	if d2 < d1 {
		t.Errorf("expected dayNumber to be non-decreasing, got d1=%d d2=%d", d1, d2)
	}
}
