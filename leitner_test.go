package main

import (
	"testing"
	"time"
)

func TestLeitnerAdvancesAndDropsBoxes(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	cfg := col.DeckConfigs[1]
	cfg.Algo = AlgoLeitner
	cfg.Leitner.BoxIntervalsDays = []int{1, 3, 7, 14}
	cfg.Leitner.DropOnFail = 2

	card := &Card{ID: 1, NoteID: 1, DeckID: DefaultDeckID, Type: TypeReview, Queue: QueueReview, LeitnerBox: 2, Factor: 2500}
	col.Cards[1] = card
	col.Notes[1] = &Note{ID: 1, ModelID: 1, FieldMap: map[string]string{}}
	col.nextCardID = 2

	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(1, Good, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.LeitnerBox != 3 {
		t.Errorf("expected box to advance to 3, got %d", card.LeitnerBox)
	}
	if card.Ivl != 14 {
		t.Errorf("expected ivl=14 for box 3, got %d", card.Ivl)
	}

	if _, err := sched.Answer(1, Again, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.LeitnerBox != 1 {
		t.Errorf("expected box to drop by 2 to box 1, got %d", card.LeitnerBox)
	}
}
