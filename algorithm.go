package main

// CardDelta is the result of scheduleAnswer: the fields an algorithm is
// permitted to change on a Card. scheduler.go applies it through the
// repository so every mutation still goes through touch()/USN bumping,
// the way the teacher's Answer() applies fsrs output back onto the
// card it looked up.
type CardDelta struct {
	Type   CardType
	Queue  CardQueue
	Due    int64
	Ivl    int
	Factor int
	Reps   int
	Lapses int
	Left   int

	FSRSData   *FSRSCardData
	LeitnerBox int

	AddTag string // "leech", set when a leech action fires
}

// Helpers bundles the inputs spec.md §4.4 says every algorithm needs,
// so ScheduleAnswer implementations stay pure functions of
// (card, grade, config, helpers) rather than closing over a Collection.
type Helpers struct {
	NowSeconds   int64
	ColCrt       int64 // collection creation epoch, seconds
	RolloverSecs int
	Rng          *Rng
}

// DayNumber is the logical day for this answer, per spec.md §4.1.
func (h Helpers) DayNumber() int64 {
	return dayNumber(h.ColCrt, h.RolloverSecs, unixToTime(h.NowSeconds))
}

func (h Helpers) AddMinutes(base int64, minutes int) int64 {
	return base + int64(minutes)*60
}

func (h Helpers) DaysSinceCrt(sec int64) int64 {
	return dayNumber(h.ColCrt, h.RolloverSecs, unixToTime(sec))
}

// ScheduleAnswer is the closed strategy interface spec.md §9 asks for in
// place of the source's dynamic-dispatch selector: one implementation
// per Algo value, chosen by algorithmFor's switch below.
type ScheduleAnswer interface {
	Schedule(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta
}

// algorithmFor resolves a deck config's selected Algo to its strategy,
// the compile-error-driven equivalent of the source's selector.
func algorithmFor(algo Algo) ScheduleAnswer {
	switch algo {
	case AlgoFSRS:
		return fsrsAlgorithm{}
	case AlgoLeitner:
		return leitnerAlgorithm{}
	case AlgoAI:
		return aiAlgorithm{}
	default:
		return sm2Algorithm{}
	}
}

// clampIvl enforces spec.md §3's `0 ≤ ivl ≤ maxIvl` invariant. Algorithm
// implementations call this on every computed interval rather than
// failing, per §4.5's "clamp, do not fail" failure semantics.
func clampIvl(ivl, maxIvl int) int {
	if ivl < 0 {
		return 0
	}
	if ivl > maxIvl {
		return maxIvl
	}
	return ivl
}

// clampFactor enforces the `factor ≥ 1300` floor from spec.md §3/§9's
// open-question resolution (no upper bound).
func clampFactor(factor int) int {
	if factor < 1300 {
		return 1300
	}
	return factor
}

// fuzzIvl applies spec.md §4.4.2's fuzz formula.
func fuzzIvl(ivl int, fuzz float64, rng *Rng, maxIvl int) int {
	if fuzz <= 0 || ivl <= 0 {
		return clampIvl(ivl, maxIvl)
	}
	u := rng.Float64()*2*fuzz - fuzz // U[-f, +f]
	fuzzed := int(roundHalfAwayFromZero(float64(ivl) * (1 + u)))

	var lo, hi int
	if ivl <= 2 {
		lo = ivl - 1
		if lo < 1 {
			lo = 1
		}
		hi = ivl + 1
	} else {
		lo = int(float64(ivl) * (1 - fuzz))
		hi = int(ceilFloat(float64(ivl) * (1 + fuzz)))
	}
	if fuzzed < lo {
		fuzzed = lo
	}
	if fuzzed > hi {
		fuzzed = hi
	}
	return clampIvl(fuzzed, maxIvl)
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func ceilFloat(f float64) float64 {
	i := int64(f)
	if f > float64(i) {
		return float64(i + 1)
	}
	return float64(i)
}
