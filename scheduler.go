package main

import (
	"fmt"
	"sort"
)

// Scheduler is the Scheduler Core of spec.md §4.5: it holds the
// Collection (Data Store + Ledger), a session-scoped BuryState, and the
// clock/rng used to build Helpers for algorithm dispatch. Grounded on
// the teacher's Collection, generalized per spec.md §9's "explicit
// Store value threaded through" redesign note, replacing the single
// flat Collection-does-everything shape with a Scheduler that owns one.
// A Scheduler is not safe for concurrent use by multiple goroutines.
type Scheduler struct {
	Col   *Collection
	Bury  *BuryState
	Rng   *Rng
	deck  int64 // 0 means no filter (global scope)
}

func NewScheduler(col *Collection, rng *Rng) *Scheduler {
	return &Scheduler{Col: col, Bury: NewBuryState(), Rng: rng}
}

// SetDeck scopes subsequent GetNext/PeekNext calls to deckID (and its
// descendants); 0 clears the filter. Stats takes its own deck argument.
func (s *Scheduler) SetDeck(deckID int64) {
	s.deck = deckID
}

func (s *Scheduler) ClearBuriedSiblings() {
	s.Col.clearBuriedSiblings(s.Bury)
}

// candidate is one selectable card plus the sort key spec.md §4.5
// defines: queue class (Learning < Review < New), then due, then id.
type candidate struct {
	card       *Card
	queueClass int
}

const (
	classLearning = 0
	classReview   = 1
	classNew      = 2
)

// selectNext is the pure queue-selection function spec.md §9 asks for:
// a function of (snapshot, clock, ledger, session-bury-set, deck-scope)
// with no side effects, called identically by GetNext and PeekNext.
func selectNext(col *Collection, bury *BuryState, nowSec int64, deckScope int64) ([]*Card, error) {
	var scopeIDs map[int64]bool
	if deckScope != 0 {
		ids, err := col.DescendantDeckIDs(deckScope)
		if err != nil {
			return nil, err
		}
		scopeIDs = make(map[int64]bool, len(ids))
		for _, id := range ids {
			scopeIDs[id] = true
		}
	}

	dayNum := dayNumber(col.Header.CreationEpoch, col.Header.RolloverOffsetSeconds, unixToTime(nowSec))

	var learning, review, newCards []candidate

	for _, card := range col.Cards {
		if scopeIDs != nil && !scopeIDs[card.DeckID] {
			continue
		}
		if card.Queue == QueueSuspended || card.Queue == QueueUserBuried || card.Queue == QueueSchedBuried {
			continue
		}
		if bury.isBuried(card) {
			continue
		}

		switch card.Queue {
		case QueueLearning, QueueDayLearn:
			if card.Due <= nowSec {
				learning = append(learning, candidate{card: card, queueClass: classLearning})
			}
		case QueueReview:
			if card.Due <= dayNum {
				rc, err := col.getRemainingCapacity(card.DeckID)
				if err != nil {
					return nil, err
				}
				if rc.CanShowReview {
					review = append(review, candidate{card: card, queueClass: classReview})
				}
			}
		case QueueNew:
			rc, err := col.getRemainingCapacity(card.DeckID)
			if err != nil {
				return nil, err
			}
			if rc.CanShowNew {
				newCards = append(newCards, candidate{card: card, queueClass: classNew})
			}
		}
	}

	sort.Slice(learning, func(i, j int) bool {
		return byDueThenID(learning[i].card, learning[j].card)
	})
	sort.Slice(review, func(i, j int) bool {
		return byDueThenID(review[i].card, review[j].card)
	})
	sort.Slice(newCards, func(i, j int) bool {
		return byDueThenID(newCards[i].card, newCards[j].card)
	})

	ordered := make([]*Card, 0, len(learning)+len(review)+len(newCards))
	for _, c := range learning {
		ordered = append(ordered, c.card)
	}
	for _, c := range review {
		ordered = append(ordered, c.card)
	}
	for _, c := range newCards {
		ordered = append(ordered, c.card)
	}
	return ordered, nil
}

func byDueThenID(a, b *Card) bool {
	if a.Due != b.Due {
		return a.Due < b.Due
	}
	return a.ID < b.ID
}

// GetNext returns the head of the ordering, or (nil, false) if nothing
// is selectable (spec.md §4.5's CapReached is this non-error signal).
func (s *Scheduler) GetNext() (*Card, bool, error) {
	ordered, err := selectNext(s.Col, s.Bury, s.Col.clock.Now().Unix(), s.deck)
	if err != nil {
		return nil, false, err
	}
	if len(ordered) == 0 {
		return nil, false, nil
	}
	return ordered[0], true, nil
}

// PeekNext returns the item at position 2 of the same ordering.
func (s *Scheduler) PeekNext() (*Card, bool, error) {
	ordered, err := selectNext(s.Col, s.Bury, s.Col.clock.Now().Unix(), s.deck)
	if err != nil {
		return nil, false, err
	}
	if len(ordered) < 2 {
		return nil, false, nil
	}
	return ordered[1], true, nil
}

// Answer runs the seven-step answer-processing pipeline of spec.md
// §4.5: lookup, classify, dispatch, apply, log, ledger, bury.
func (s *Scheduler) Answer(cardID int64, grade Grade, responseTimeMs int) (*ReviewLogEntry, error) {
	if !grade.Valid() {
		return nil, invalidState("Answer", fmt.Errorf("grade %d out of range", grade))
	}

	card, ok := s.Col.Cards[cardID]
	if !ok {
		return nil, notFound("Answer", fmt.Errorf("card %d", cardID))
	}

	prevType := card.Type
	prevIvl := card.Ivl

	cfg, err := s.Col.DeckConfigFor(card.DeckID)
	if err != nil {
		return nil, err
	}

	now := s.Col.clock.Now()
	h := Helpers{
		NowSeconds:   now.Unix(),
		ColCrt:       s.Col.Header.CreationEpoch,
		RolloverSecs: s.Col.Header.RolloverOffsetSeconds,
		Rng:          s.Rng,
	}

	delta := algorithmFor(cfg.Algo).Schedule(card, grade, cfg, h)

	mod := s.Col.touch()
	card.Type = delta.Type
	card.Queue = delta.Queue
	card.Suspended = card.Queue == QueueSuspended
	card.Due = delta.Due
	card.Ivl = delta.Ivl
	card.Factor = delta.Factor
	card.Reps = delta.Reps
	card.Lapses = delta.Lapses
	card.Left = delta.Left
	if delta.FSRSData != nil {
		card.FSRSData = delta.FSRSData
	}
	if cfg.Algo == AlgoLeitner || cfg.Algo == AlgoAI {
		card.LeitnerBox = delta.LeitnerBox
	}
	if delta.AddTag != "" {
		card.Tags = appendTagOnce(card.Tags, delta.AddTag)
	}
	card.Mod = mod
	card.USN = s.Col.Header.USN

	lastIvl := int64(prevIvl)
	if prevType != TypeReview {
		lastIvl = 0
		for i := len(s.Col.Revlog) - 1; i >= 0; i-- {
			if s.Col.Revlog[i].CardID == cardID {
				lastIvl = s.Col.Revlog[i].Ivl
				break
			}
		}
	}

	entry := ReviewLogEntry{
		ID:             s.Col.ids.Next(),
		CardID:         cardID,
		Grade:          grade,
		Ivl:            encodeRevlogIvl(delta, h.NowSeconds),
		LastIvl:        lastIvl,
		Factor:         delta.Factor,
		ResponseTimeMs: responseTimeMs,
		Type:           classifyRevlogType(prevType),
		ReviewedAt:     h.NowSeconds,
	}
	s.Col.Revlog = append(s.Col.Revlog, entry)

	dayKey := s.Col.currentDayKey()
	switch prevType {
	case TypeNew:
		s.Col.incrementNewIntroduced(card.DeckID, dayKey)
	case TypeLearning, TypeReview, TypeRelearning:
		s.Col.incrementReviewDone(card.DeckID, dayKey)
	}

	if err := s.Col.applySiblingBury(s.Bury, card); err != nil {
		return nil, err
	}

	return &entry, nil
}

func appendTagOnce(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// encodeRevlogIvl applies spec.md §3's signed-ivl encoding: negative
// seconds for learning-phase cards, positive days for review cards.
func encodeRevlogIvl(d CardDelta, nowSec int64) int64 {
	if d.Type == TypeReview {
		return int64(d.Ivl)
	}
	return -(d.Due - nowSec)
}

func classifyRevlogType(prevType CardType) RevlogType {
	switch prevType {
	case TypeReview:
		return RevlogReview
	case TypeRelearning:
		return RevlogRelearn
	default:
		return RevlogLearn
	}
}

// Stats summarizes deckID (or the whole collection when deckID == 0)
// for the host's Stats() contract method.
func (s *Scheduler) Stats(deckID int64) (DeckStats, error) {
	var ids map[int64]bool
	if deckID != 0 {
		list, err := s.Col.DescendantDeckIDs(deckID)
		if err != nil {
			return DeckStats{}, err
		}
		ids = make(map[int64]bool, len(list))
		for _, id := range list {
			ids[id] = true
		}
	}

	dayNum := s.Col.currentDayKey()
	stats := DeckStats{DeckID: deckID}
	for _, card := range s.Col.Cards {
		if ids != nil && !ids[card.DeckID] {
			continue
		}
		stats.Total++
		switch card.Type {
		case TypeNew:
			stats.New++
		case TypeLearning:
			stats.Learning++
		case TypeReview:
			stats.Review++
		case TypeRelearning:
			stats.Relearning++
		}
		switch card.Queue {
		case QueueSuspended:
			stats.Suspended++
		case QueueUserBuried, QueueSchedBuried:
			stats.Buried++
		}
		if (card.Queue == QueueReview && card.Due <= dayNum) ||
			((card.Queue == QueueLearning || card.Queue == QueueDayLearn) && card.Due <= s.Col.clock.Now().Unix()) {
			stats.DueToday++
		}
	}
	return stats, nil
}
