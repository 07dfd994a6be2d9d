package main

import "fmt"

// BuryState is the session-scoped sibling-bury tracker from spec.md
// §4.5 / §9. It does flip a buried card's Queue to QueueUserBuried, the
// same field selectNext already checks for suspended cards, but it
// records each card's prior queue first so clearBuriedSiblings can put
// it back. The Collection/Scheduler never calls SaveSnapshot without
// clearing buried siblings first (see server.go's persist()), so no
// snapshot on disk ever observes a card parked in QueueUserBuried.
// Kept as its own type (rather than fields on Collection) because its
// priorQueue map is explicitly NOT part of the persisted snapshot.
type BuryState struct {
	buriedNotes map[int64]bool
	priorQueue  map[int64]CardQueue // cardID -> queue before burying
}

func NewBuryState() *BuryState {
	return &BuryState{
		buriedNotes: make(map[int64]bool),
		priorQueue:  make(map[int64]CardQueue),
	}
}

// buryCard is applied to every live sibling of answeredCard's note,
// except answeredCard itself, unless the note's model is
// image-occlusion (spec.md §4.5 exception).
func (b *BuryState) buryCard(card *Card) {
	if card.Queue == QueueUserBuried || card.Queue == QueueSchedBuried {
		return
	}
	b.priorQueue[card.ID] = card.Queue
	card.Queue = QueueUserBuried
}

// applySiblingBury buries every other card sharing answered.NoteID,
// unless the note's model is image-occlusion.
func (c *Collection) applySiblingBury(b *BuryState, answered *Card) error {
	note, ok := c.Notes[answered.NoteID]
	if !ok {
		return notFound("applySiblingBury", fmt.Errorf("note %d", answered.NoteID))
	}
	model, ok := c.Models[note.ModelID]
	if !ok {
		return notFound("applySiblingBury", fmt.Errorf("model %d", note.ModelID))
	}
	if model.Kind == ModelImageOcclusion {
		return nil
	}

	b.buriedNotes[answered.NoteID] = true
	for _, card := range c.Cards {
		if card.ID == answered.ID || card.NoteID != answered.NoteID {
			continue
		}
		b.buryCard(card)
	}
	return nil
}

// clearBuriedSiblings restores every buried card's prior queue and
// clears the session sets. Must be called before any snapshot write,
// per spec.md §4.6.
func (c *Collection) clearBuriedSiblings(b *BuryState) {
	for cardID, queue := range b.priorQueue {
		if card, ok := c.Cards[cardID]; ok {
			card.Queue = queue
		}
	}
	b.buriedNotes = make(map[int64]bool)
	b.priorQueue = make(map[int64]CardQueue)
}

// isBuried reports whether card is currently session-buried, either by
// queue value or because its note is in the bury set (belt-and-braces:
// the queue flip is the source of truth, the set lets selectNext reject
// in one map lookup without walking prior-queue state).
func (b *BuryState) isBuried(card *Card) bool {
	if card.Queue == QueueUserBuried || card.Queue == QueueSchedBuried {
		return true
	}
	return b.buriedNotes[card.NoteID]
}
