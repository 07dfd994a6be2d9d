package main

// aiAlgorithm implements the adaptive tier from spec.md §4.4.6: per-card
// scheduling wraps FSRS unchanged, and a separate daily control loop
// (solveDailyNewCap) adjusts new.perDay so predicted review time stays
// under the deck's minute budget. There is no library in the pack that
// targets a time-budgeted review scheduler, so the control loop is
// hand-written, grounded on the same contract shape as fsrsAlgorithm.
type aiAlgorithm struct{}

func (aiAlgorithm) Schedule(card *Card, grade Grade, cfg *DeckConfig, h Helpers) CardDelta {
	return fsrsAlgorithm{}.Schedule(card, grade, cfg, h)
}

// assumedSecondsPerReview is a fixed per-card time estimate used by the
// daily cap solver; a real deployment would replace this with an
// exponential moving average of observed responseTimeMs, but spec.md
// describes the control loop at contract level only.
const assumedSecondsPerReview = 10.0

// solveDailyNewCap implements spec.md §4.4.6's control loop: given the
// number of review-queue cards already due today and the deck's minute
// budget, solve for how many new cards the day's new.perDay should
// admit so total predicted review time stays within budget. Never
// reduces the cap below 1.
func solveDailyNewCap(cfg *DeckConfig, reviewsDueToday int) int {
	budgetSeconds := cfg.AI.DailyMinutes * 60
	reviewSeconds := float64(reviewsDueToday) * assumedSecondsPerReview
	remainingSeconds := budgetSeconds - reviewSeconds
	if remainingSeconds <= 0 {
		return 1
	}

	// New cards cost more than a steady-state review (first exposure plus
	// same-day learning steps), so weight them at 1.5x a plain review.
	newCost := assumedSecondsPerReview * 1.5
	cap := int(remainingSeconds / newCost)
	if cap < 1 {
		cap = 1
	}
	if cap > cfg.New.PerDay {
		cap = cfg.New.PerDay
	}
	return cap
}
