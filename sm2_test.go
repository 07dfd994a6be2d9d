package main

import (
	"testing"
	"time"
)

func newTestCollectionForSM2() (*Collection, *FixedClock) {
	clock := NewFixedClock(time.Unix(1_700_000_000, 0))
	col := NewCollection(clock)
	return col, clock
}

func newCard(col *Collection, cardType CardType, queue CardQueue, ivl, factor, lapses int) *Card {
	id := col.nextCardID
	col.nextCardID++
	card := &Card{
		ID:      id,
		NoteID:  1,
		DeckID:  DefaultDeckID,
		Type:    cardType,
		Queue:   queue,
		Ivl:     ivl,
		Factor:  factor,
		Lapses:  lapses,
	}
	col.Cards[id] = card
	if _, ok := col.Notes[1]; !ok {
		col.Notes[1] = &Note{ID: 1, ModelID: 1, FieldMap: map[string]string{}}
	}
	return card
}

// Scenario 1 from spec.md §8: graduate a new card across two Good answers.
func TestSM2GraduateNewCard(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	cfg := col.DeckConfigs[1]
	cfg.New.DelaysMin = []int{1, 10}
	cfg.New.IntsDays = [3]int{1, 4, 7}
	cfg.Rev.IvlFct = 1.0
	cfg.Rev.Fuzz = 0

	card := newCard(col, TypeNew, QueueNew, 0, 2500, 0)
	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(card.ID, Good, 0); err != nil {
		t.Fatalf("first answer failed: %v", err)
	}
	if card.Type != TypeLearning || card.Queue != QueueLearning {
		t.Fatalf("expected card to be Learning after first Good, got type=%v queue=%v", card.Type, card.Queue)
	}
	wantDue := col.clock.Now().Unix() + 60
	if card.Due != wantDue {
		t.Errorf("expected due=%d, got %d", wantDue, card.Due)
	}
	if card.Left != 1 {
		t.Errorf("expected left=1, got %d", card.Left)
	}

	if _, err := sched.Answer(card.ID, Good, 0); err != nil {
		t.Fatalf("second answer failed: %v", err)
	}
	if card.Type != TypeReview || card.Queue != QueueReview {
		t.Fatalf("expected card to graduate to Review, got type=%v queue=%v", card.Type, card.Queue)
	}
	if card.Ivl != 1 {
		t.Errorf("expected ivl=1 on graduation, got %d", card.Ivl)
	}
	if card.Reps != 1 {
		t.Errorf("expected reps=1, got %d", card.Reps)
	}
}

// Scenario 2: lapse into relearn.
func TestSM2LapseIntoRelearn(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	cfg := col.DeckConfigs[1]
	cfg.Lapse.Mult = 0.5
	cfg.Lapse.MinInt = 1
	cfg.Lapse.DelaysMin = []int{10}
	cfg.Lapse.LeechFails = 8

	card := newCard(col, TypeReview, QueueReview, 10, 2500, 0)
	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(card.ID, Again, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.Type != TypeRelearning || card.Queue != QueueLearning {
		t.Fatalf("expected Relearning/Learning, got type=%v queue=%v", card.Type, card.Queue)
	}
	wantDue := col.clock.Now().Unix() + 600
	if card.Due != wantDue {
		t.Errorf("expected due=%d, got %d", wantDue, card.Due)
	}
	if card.Factor != 2300 {
		t.Errorf("expected factor=2300, got %d", card.Factor)
	}
	if card.Lapses != 1 {
		t.Errorf("expected lapses=1, got %d", card.Lapses)
	}
	if card.Ivl != 5 {
		t.Errorf("expected post-relearn ivl=5, got %d", card.Ivl)
	}
}

// Scenario 3: easy bonus.
func TestSM2EasyBonus(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	cfg := col.DeckConfigs[1]
	cfg.Rev.Ease4 = 1300
	cfg.Rev.IvlFct = 1.0
	cfg.Rev.Fuzz = 0

	card := newCard(col, TypeReview, QueueReview, 10, 2500, 0)
	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(card.ID, Easy, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.Ivl != 32 {
		t.Errorf("expected ivl=32 before fuzz clamp, got %d", card.Ivl)
	}
	if card.Factor != 2650 {
		t.Errorf("expected factor=2650, got %d", card.Factor)
	}
}

// Scenario 4: leech suspension.
func TestSM2LeechSuspension(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	cfg := col.DeckConfigs[1]
	cfg.Lapse.LeechFails = 8
	cfg.Lapse.LeechAction = LeechSuspend

	card := newCard(col, TypeReview, QueueReview, 10, 2500, 7)
	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(card.ID, Again, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.Lapses != 8 {
		t.Errorf("expected lapses=8, got %d", card.Lapses)
	}
	if card.Queue != QueueSuspended {
		t.Errorf("expected queue=Suspended, got %v", card.Queue)
	}
}

// Universal invariant from spec.md §8: factor never drops below 1300.
func TestSM2FactorFloor(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	card := newCard(col, TypeReview, QueueReview, 5, 1350, 0)
	sched := NewScheduler(col, NewRng(1))

	for i := 0; i < 5; i++ {
		if _, err := sched.Answer(card.ID, Hard, 0); err != nil {
			t.Fatalf("answer %d failed: %v", i, err)
		}
	}
	if card.Factor < 1300 {
		t.Errorf("factor dropped below floor: %d", card.Factor)
	}
}

// Universal invariant: ivl stays within [0, maxIvl].
func TestSM2IvlClampedToMax(t *testing.T) {
	col, _ := newTestCollectionForSM2()
	cfg := col.DeckConfigs[1]
	cfg.Rev.MaxIvl = 100

	card := newCard(col, TypeReview, QueueReview, 90, 4000, 0)
	sched := NewScheduler(col, NewRng(1))

	if _, err := sched.Answer(card.ID, Easy, 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if card.Ivl > cfg.Rev.MaxIvl {
		t.Errorf("expected ivl <= %d, got %d", cfg.Rev.MaxIvl, card.Ivl)
	}
}
