package main

import (
	"time"

	"github.com/open-spaced-repetition/go-fsrs/v3"
)

// fsrsAlgorithm adapts the open-spaced-repetition/go-fsrs/v3 library to
// the ScheduleAnswer contract. Grounded on the teacher's Answer(), which
// already drives this exact library (fsrs.NewFSRS(params).Repeat(card,
// now)) — the only change is that our Card stores the fsrs state inside
// FSRSData rather than embedding fsrs.Card wholesale, so a Card can also
// carry SM-2/Leitner state without the fields colliding.
type fsrsAlgorithm struct{}

func (fsrsAlgorithm) Schedule(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	params := fsrsParams(cfg)
	now := unixToTime(h.NowSeconds)

	fc := toFSRSCard(card, now, h)
	sched := fsrs.NewFSRS(params).Repeat(fc, now)

	rating := toFSRSRating(grade)
	info, ok := sched[rating]
	if !ok {
		// Defensive fallback: Good always has an entry in go-fsrs's output map.
		info = sched[fsrs.Good]
	}

	return fromFSRSCard(card, info.Card, cfg, h)
}

func fsrsParams(cfg *DeckConfig) fsrs.Parameters {
	p := fsrs.DefaultParam()
	if cfg.FSRS.TargetRetention > 0 {
		p.RequestRetention = cfg.FSRS.TargetRetention
	}
	if len(cfg.FSRS.Weights) == len(p.W) {
		copy(p.W[:], cfg.FSRS.Weights)
	}
	p.MaximumInterval = float64(cfg.Rev.MaxIvl)
	return p
}

func toFSRSRating(g Grade) fsrs.Rating {
	switch g {
	case Again:
		return fsrs.Again
	case Hard:
		return fsrs.Hard
	case Easy:
		return fsrs.Easy
	default:
		return fsrs.Good
	}
}

func toFSRSState(t CardType) fsrs.State {
	switch t {
	case TypeLearning:
		return fsrs.Learning
	case TypeReview:
		return fsrs.Review
	case TypeRelearning:
		return fsrs.Relearning
	default:
		return fsrs.New
	}
}

func fromFSRSState(s fsrs.State) CardType {
	switch s {
	case fsrs.Learning:
		return TypeLearning
	case fsrs.Review:
		return TypeReview
	case fsrs.Relearning:
		return TypeRelearning
	default:
		return TypeNew
	}
}

// toFSRSCard builds a library fsrs.Card from our Card's FSRSData
// extension field, the way spec.md §4.4.4 allows ("implementers may
// store (stability, difficulty) inside the card's data field").
func toFSRSCard(card *Card, now time.Time, h Helpers) fsrs.Card {
	fc := fsrs.NewCard()
	fc.State = toFSRSState(card.Type)
	fc.Reps = uint64(card.Reps)
	fc.Lapses = uint64(card.Lapses)
	if card.FSRSData != nil {
		fc.Stability = card.FSRSData.Stability
		fc.Difficulty = card.FSRSData.Difficulty
	}
	switch card.Type {
	case TypeLearning, TypeRelearning:
		fc.Due = unixToTime(card.Due)
	case TypeReview:
		fc.ScheduledDays = uint64(card.Ivl)
		fc.Due = unixToTime(h.ColCrt + int64(h.RolloverSecs) + card.Due*86400)
	default:
		fc.Due = now
	}
	return fc
}

// fromFSRSCard converts the library's scheduling result back into our
// CardDelta, re-deriving due/queue from the fsrs state the way
// scheduler.go expects for every algorithm.
func fromFSRSCard(prev *Card, fc fsrs.Card, cfg *DeckConfig, h Helpers) CardDelta {
	cardType := fromFSRSState(fc.State)

	delta := CardDelta{
		Type:   cardType,
		Reps:   int(fc.Reps),
		Lapses: int(fc.Lapses),
		Factor: prev.Factor,
		FSRSData: &FSRSCardData{
			Stability:  fc.Stability,
			Difficulty: fc.Difficulty,
		},
	}

	switch cardType {
	case TypeReview:
		ivl := clampIvl(int(fc.ScheduledDays), cfg.Rev.MaxIvl)
		delta.Queue = QueueReview
		delta.Ivl = ivl
		delta.Due = h.DayNumber() + int64(ivl)
	default:
		delta.Queue = QueueLearning
		delta.Due = fc.Due.Unix()
		delta.Left = 1
	}

	if cardType == TypeRelearning && fc.Lapses >= uint64(cfg.Lapse.LeechFails) {
		if cfg.Lapse.LeechAction == LeechSuspend {
			delta.Queue = QueueSuspended
		} else {
			delta.AddTag = "leech"
		}
	}

	return delta
}
