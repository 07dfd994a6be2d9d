package main

// sm2Algorithm implements the SM-2 case matrix from spec.md §4.4.1–§4.4.3
// in full. It is grounded on the teacher's fsrs-driven Answer() for the
// overall shape (look up card, dispatch by grade, return delta applied
// by the caller) but the interval arithmetic itself is hand-written per
// the spec, since the teacher never implemented SM-2 directly.
type sm2Algorithm struct{}

func (sm2Algorithm) Schedule(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	switch card.Type {
	case TypeReview:
		return sm2Review(card, grade, cfg, h)
	default:
		return sm2Learning(card, grade, cfg, h)
	}
}

// sm2Learning covers New/Learning/Relearning cards, spec.md §4.4.1(a).
func sm2Learning(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	delays := cfg.New.DelaysMin
	if card.Type == TypeRelearning {
		delays = cfg.Lapse.DelaysMin
	}
	if len(delays) == 0 {
		delays = []int{1}
	}

	left := card.Left
	if card.Type == TypeNew {
		left = len(delays)
	}

	delta := CardDelta{
		Type:   card.Type,
		Factor: card.Factor,
		Reps:   card.Reps,
		Lapses: card.Lapses,
		Ivl:    card.Ivl,
	}
	if delta.Type == TypeNew {
		delta.Type = TypeLearning
	}

	// Hard folds into Good on the learning surface per spec.md §6.
	effective := grade
	if effective == Hard {
		effective = Good
	}

	switch effective {
	case Again:
		delta.Left = len(delays)
		delta.Due = h.NowSeconds + int64(delays[0])*60
		delta.Queue = QueueLearning
		if card.Type == TypeRelearning {
			delta.Type = TypeRelearning
		}
		return delta

	case Good:
		if left > 1 {
			delta.Left = left - 1
			step := delays[len(delays)-left]
			delta.Due = h.NowSeconds + int64(step)*60
			delta.Queue = QueueLearning
			if card.Type == TypeRelearning {
				delta.Type = TypeRelearning
			}
			return delta
		}
		return sm2Graduate(card, cfg, h, cfg.New.IntsDays[0])

	case Easy:
		return sm2Graduate(card, cfg, h, cfg.New.IntsDays[1])
	}

	// Unreachable for Grade.Valid() inputs; fall back to Again semantics.
	delta.Left = len(delays)
	delta.Due = h.NowSeconds + int64(delays[0])*60
	delta.Queue = QueueLearning
	return delta
}

func sm2Graduate(card *Card, cfg *DeckConfig, h Helpers, ivlDays int) CardDelta {
	factor := card.Factor
	if card.Type != TypeRelearning {
		if factor < 2500 {
			factor = 2500
		}
	}
	return CardDelta{
		Type:   TypeReview,
		Queue:  QueueReview,
		Ivl:    clampIvl(ivlDays, cfg.Rev.MaxIvl),
		Due:    h.DayNumber() + int64(ivlDays),
		Factor: clampFactor(factor),
		Reps:   card.Reps + 1,
		Lapses: card.Lapses,
		Left:   0,
	}
}

// sm2Review covers Review-type cards, spec.md §4.4.3, including the
// elapsed-days overdue adjustment.
func sm2Review(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	elapsedOverdue := h.DayNumber() - card.Due
	if elapsedOverdue < 0 {
		elapsedOverdue = 0
	}
	effectiveIvl := card.Ivl
	if card.Ivl+int(elapsedOverdue) > effectiveIvl {
		effectiveIvl = card.Ivl + int(elapsedOverdue)
	}

	switch grade {
	case Again:
		lapses := card.Lapses + 1
		postRelearnIvl := cfg.Lapse.MinInt
		if computed := int(float64(card.Ivl) * cfg.Lapse.Mult); computed > postRelearnIvl {
			postRelearnIvl = computed
		}
		delta := CardDelta{
			Type:   TypeRelearning,
			Queue:  QueueLearning,
			Due:    h.NowSeconds + int64(firstOr(cfg.Lapse.DelaysMin, 10))*60,
			Ivl:    clampIvl(postRelearnIvl, cfg.Rev.MaxIvl),
			Factor: clampFactor(card.Factor - 200),
			Reps:   card.Reps,
			Lapses: lapses,
			Left:   len(cfg.Lapse.DelaysMin),
		}
		if lapses >= cfg.Lapse.LeechFails {
			if cfg.Lapse.LeechAction == LeechSuspend {
				delta.Queue = QueueSuspended
			} else {
				delta.AddTag = "leech"
			}
		}
		return delta

	case Hard:
		base := float64(effectiveIvl) * cfg.Rev.HardFactor * cfg.Rev.IvlFct
		ivl := maxInt(effectiveIvl+1, int(base))
		ivl = fuzzIvl(ivl, cfg.Rev.Fuzz, h.Rng, cfg.Rev.MaxIvl)
		return CardDelta{
			Type:   TypeReview,
			Queue:  QueueReview,
			Ivl:    ivl,
			Due:    h.DayNumber() + int64(ivl),
			Factor: clampFactor(card.Factor - 150),
			Reps:   card.Reps + 1,
			Lapses: card.Lapses,
		}

	case Easy:
		base := float64(effectiveIvl) * (float64(card.Factor) / 1000) * (float64(cfg.Rev.Ease4) / 1000) * cfg.Rev.IvlFct
		ivl := maxInt(effectiveIvl+1, int(base))
		ivl = fuzzIvl(ivl, cfg.Rev.Fuzz, h.Rng, cfg.Rev.MaxIvl)
		return CardDelta{
			Type:   TypeReview,
			Queue:  QueueReview,
			Ivl:    ivl,
			Due:    h.DayNumber() + int64(ivl),
			Factor: clampFactor(card.Factor + 150),
			Reps:   card.Reps + 1,
			Lapses: card.Lapses,
		}

	default: // Good
		base := float64(effectiveIvl) * (float64(card.Factor) / 1000) * cfg.Rev.IvlFct
		ivl := maxInt(effectiveIvl+1, int(base))
		ivl = fuzzIvl(ivl, cfg.Rev.Fuzz, h.Rng, cfg.Rev.MaxIvl)
		return CardDelta{
			Type:   TypeReview,
			Queue:  QueueReview,
			Ivl:    ivl,
			Due:    h.DayNumber() + int64(ivl),
			Factor: card.Factor,
			Reps:   card.Reps + 1,
			Lapses: card.Lapses,
		}
	}
}

func firstOr(xs []int, def int) int {
	if len(xs) == 0 {
		return def
	}
	return xs[0]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
