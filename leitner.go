package main

// leitnerAlgorithm implements the fixed-box strategy from spec.md
// §4.4.5. Grounded on the box/graduate control flow of the plain-Go
// FSRS reimplementation in
// other_examples/d0092a34_heartmarshall-genius-disctionary-backend_*
// (advance/drop-then-reclamp around a bounded index), adapted here to
// box intervals instead of stability.
type leitnerAlgorithm struct{}

func (leitnerAlgorithm) Schedule(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	boxes := cfg.Leitner.BoxIntervalsDays
	if len(boxes) == 0 {
		boxes = []int{1}
	}

	box := card.LeitnerBox
	if box >= len(boxes) {
		box = len(boxes) - 1
	}
	if box < 0 {
		box = 0
	}

	switch grade {
	case Again:
		box -= cfg.Leitner.DropOnFail
		if box < 0 {
			box = 0
		}
	default: // Hard folds to no-advance, Good/Easy advance
		if grade != Hard {
			box++
		}
		if box >= len(boxes) {
			box = len(boxes) - 1
		}
	}

	ivl := clampIvl(boxes[box], cfg.Rev.MaxIvl)
	cardType := TypeReview
	queue := QueueReview
	if box == 0 && grade == Again {
		// First box after a drop re-enters via the short learning queue,
		// mirroring the source's relearn-on-drop behavior.
		cardType = TypeRelearning
		queue = QueueLearning
	}

	delta := CardDelta{
		Type:       cardType,
		Queue:      queue,
		Ivl:        ivl,
		Factor:     card.Factor,
		Reps:       card.Reps + 1,
		Lapses:     card.Lapses,
		LeitnerBox: box,
	}
	if cardType == TypeRelearning {
		delta.Due = h.NowSeconds + int64(firstOr(cfg.Lapse.DelaysMin, 10))*60
		delta.Left = 1
		delta.Lapses = card.Lapses + 1
	} else {
		delta.Due = h.DayNumber() + int64(ivl)
	}
	return delta
}
