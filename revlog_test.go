package main

import (
	"os"
	"testing"
	"time"
)

// TestRevlogPersistence validates that answering a card appends a
// revlog entry that survives a snapshot save/load round trip, the new
// model's equivalent of the teacher's row-level revlog check.
func TestRevlogPersistence(t *testing.T) {
	dbPath := "./test_revlog_persistence.db"
	defer os.Remove(dbPath)

	clock := NewFixedClock(time.Unix(1_700_000_000, 0))
	col := NewCollection(clock)

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	sched := NewScheduler(col, NewRng(1))

	note, cards, err := col.AddNote(DefaultDeckID, 1, map[string]string{
		"Front": "Test Question",
		"Back":  "Test Answer",
	}, nil)
	if err != nil {
		t.Fatalf("failed to add note: %v", err)
	}
	if note.ID == 0 || len(cards) != 1 {
		t.Fatalf("expected one card from a Basic note, got %d", len(cards))
	}

	cardID := cards[0].ID
	timeTakenMs := 3500

	entry, err := sched.Answer(cardID, Good, timeTakenMs)
	if err != nil {
		t.Fatalf("failed to answer card: %v", err)
	}
	if entry.CardID != cardID {
		t.Errorf("expected revlog card id %d, got %d", cardID, entry.CardID)
	}
	if entry.Grade != Good {
		t.Errorf("expected revlog grade Good, got %v", entry.Grade)
	}
	if entry.ResponseTimeMs != timeTakenMs {
		t.Errorf("expected revlog responseTimeMs %d, got %d", timeTakenMs, entry.ResponseTimeMs)
	}

	ratings := []Grade{Again, Hard, Easy}
	for i, g := range ratings {
		clock.Advance(time.Duration(i+1) * time.Minute)
		if _, err := sched.Answer(cardID, g, 1200*(i+1)); err != nil {
			t.Fatalf("failed to answer card with grade %v: %v", g, err)
		}
	}

	if len(col.Revlog) != 4 {
		t.Fatalf("expected 4 revlog entries, got %d", len(col.Revlog))
	}

	sched.ClearBuriedSiblings()
	if err := store.SaveSnapshot(col); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	reloaded := NewCollection(clock)
	if err := store.LoadSnapshot(reloaded); err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if len(reloaded.Revlog) != 4 {
		t.Errorf("expected 4 revlog entries after reload, got %d", len(reloaded.Revlog))
	}
	if _, ok := reloaded.Cards[cardID]; !ok {
		t.Errorf("expected card %d to survive snapshot round trip", cardID)
	}
}
