package main

import (
	"testing"
	"time"
)

// Scenario 5 from spec.md §8: sibling bury (non-IO).
func TestSiblingBuryHidesUnansweredSibling(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	// Basic (and reversed card) model (id=2) produces two sibling cards.
	_, cards, err := col.AddNote(DefaultDeckID, 2, map[string]string{
		"Front": "hello",
		"Back":  "hola",
	}, nil)
	if err != nil {
		t.Fatalf("failed to add note: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 sibling cards, got %d", len(cards))
	}
	a, b := cards[0], cards[1]
	a.Type, a.Queue = TypeReview, QueueReview
	b.Type, b.Queue = TypeReview, QueueReview
	a.Due, b.Due = 0, 0

	sched := NewScheduler(col, NewRng(1))
	if _, err := sched.Answer(a.ID, Good, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	next, ok, err := sched.GetNext()
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if ok && next.ID == b.ID {
		t.Fatalf("expected sibling %d to be buried, but GetNext returned it", b.ID)
	}

	sched.ClearBuriedSiblings()
	next, ok, err = sched.GetNext()
	if err != nil {
		t.Fatalf("GetNext after clear failed: %v", err)
	}
	if !ok || next.ID != b.ID {
		t.Fatalf("expected sibling %d selectable after clearBuriedSiblings", b.ID)
	}
}

// Scenario 6: sibling bury exception for image-occlusion notes.
func TestSiblingBuryExceptionForImageOcclusion(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	model := col.Models[4] // Image Occlusion
	model.Templates = append(model.Templates, model.Templates[0])

	note := &Note{ID: col.nextNoteID, ModelID: model.ID, FieldMap: map[string]string{
		"Image": "anatomy.png", "Header": "", "Back Extra": "",
	}}
	col.nextNoteID++
	col.Notes[note.ID] = note

	var cards []*Card
	for ord := range model.Templates {
		c := &Card{
			ID:      col.nextCardID,
			NoteID:  note.ID,
			DeckID:  DefaultDeckID,
			Ordinal: ord,
			Type:    TypeReview,
			Queue:   QueueReview,
			Factor:  2500,
		}
		col.nextCardID++
		col.Cards[c.ID] = c
		cards = append(cards, c)
	}

	sched := NewScheduler(col, NewRng(1))
	if _, err := sched.Answer(cards[0].ID, Good, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if cards[1].Queue == QueueUserBuried {
		t.Errorf("image-occlusion siblings must not be buried")
	}
}

// Scenario 7: daily cap on new cards.
func TestDailyCapBlocksNewCards(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	cfg := col.DeckConfigs[1]
	cfg.New.PerDay = 3

	dayKey := col.currentDayKey()
	for i := 0; i < 3; i++ {
		col.incrementNewIntroduced(DefaultDeckID, dayKey)
	}

	_, cards, err := col.AddNote(DefaultDeckID, 1, map[string]string{
		"Front": "extra", "Back": "card",
	}, nil)
	if err != nil {
		t.Fatalf("failed to add note: %v", err)
	}
	_ = cards

	sched := NewScheduler(col, NewRng(1))
	_, ok, err := sched.GetNext()
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if ok {
		t.Errorf("expected GetNext to report no selectable card once the daily new cap is exhausted")
	}
}

// Universal invariant: a suspended or buried card is never selected.
func TestSuspendedCardNeverSelected(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	_, cards, err := col.AddNote(DefaultDeckID, 1, map[string]string{
		"Front": "x", "Back": "y",
	}, nil)
	if err != nil {
		t.Fatalf("failed to add note: %v", err)
	}
	cards[0].Queue = QueueSuspended

	sched := NewScheduler(col, NewRng(1))
	next, ok, err := sched.GetNext()
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if ok && next.ID == cards[0].ID {
		t.Errorf("suspended card must never be returned by selection")
	}
}

// Learning > Review > New ordering (spec.md §4.5).
func TestQueueSelectionOrdersLearningBeforeReviewBeforeNew(t *testing.T) {
	col := NewCollection(NewFixedClock(time.Unix(1_700_000_000, 0)))
	now := col.clock.Now().Unix()

	learn := &Card{ID: 101, NoteID: 1, DeckID: DefaultDeckID, Type: TypeLearning, Queue: QueueLearning, Due: now - 10}
	review := &Card{ID: 102, NoteID: 2, DeckID: DefaultDeckID, Type: TypeReview, Queue: QueueReview, Due: col.currentDayKey() - 1}
	newCard := &Card{ID: 103, NoteID: 3, DeckID: DefaultDeckID, Type: TypeNew, Queue: QueueNew, Due: 0}
	col.Cards[101] = learn
	col.Cards[102] = review
	col.Cards[103] = newCard
	col.nextCardID = 104

	sched := NewScheduler(col, NewRng(1))
	next, ok, err := sched.GetNext()
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if !ok || next.ID != learn.ID {
		t.Fatalf("expected learning card to be selected first, got %+v", next)
	}
}
