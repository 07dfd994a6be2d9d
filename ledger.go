package main

// TodayUsage is the per-(deck, logical day) counter repository described
// by spec.md §4.3. It lives on Collection alongside the entity maps, the
// way the teacher keeps Revlog and Media as first-class Collection
// fields rather than a separate service object.

// currentDayKey returns today's logical day key for this collection,
// per spec.md §4.1's dayNumber formula.
func (c *Collection) currentDayKey() int64 {
	return dayNumber(c.Header.CreationEpoch, c.Header.RolloverOffsetSeconds, c.clock.Now())
}

func (c *Collection) usageRecord(deckID, dayKey int64) *TodayUsageRecord {
	key := TodayUsageKey{DeckID: deckID, DayKey: dayKey}
	rec, ok := c.TodayUsage[key]
	if !ok {
		rec = &TodayUsageRecord{DeckID: deckID, DayKey: dayKey}
		c.TodayUsage[key] = rec
	}
	return rec
}

// incrementNewIntroduced records that one new card was introduced in
// deckID on dayKey.
func (c *Collection) incrementNewIntroduced(deckID, dayKey int64) {
	c.usageRecord(deckID, dayKey).NewIntroduced++
}

// incrementReviewDone records that one learning/review/relearning card
// left its queue in deckID on dayKey.
func (c *Collection) incrementReviewDone(deckID, dayKey int64) {
	c.usageRecord(deckID, dayKey).ReviewDone++
}

// getDeckTodayCounts aggregates deckID's own usage plus every descendant
// deck's usage for the current dayKey, per spec.md §4.3.
func (c *Collection) getDeckTodayCounts(deckID int64) (newIntroduced, reviewDone int, err error) {
	ids, err := c.DescendantDeckIDs(deckID)
	if err != nil {
		return 0, 0, err
	}
	dayKey := c.currentDayKey()
	for _, id := range ids {
		key := TodayUsageKey{DeckID: id, DayKey: dayKey}
		if rec, ok := c.TodayUsage[key]; ok {
			newIntroduced += rec.NewIntroduced
			reviewDone += rec.ReviewDone
		}
	}
	return newIntroduced, reviewDone, nil
}

// RemainingCapacity is the result of getRemainingCapacity: spec.md §4.3
// names it an anonymous record; we give it a type so scheduler.go can
// pass it around without repeating the four fields everywhere.
type RemainingCapacity struct {
	CanShowNew    bool
	CanShowReview bool
	NewRemaining  int
	ReviewRemaining int
}

// getRemainingCapacity computes how many more new/review cards deckID
// may show today, aggregated across its descendants against its own
// DeckConfig's per-day caps. For AlgoAI decks, the configured PerDay is
// first replaced by solveDailyNewCap's §4.4.6 control-loop result, so
// the adaptive tier actually throttles new cards against the deck's
// minute budget instead of just delegating per-card scheduling to FSRS.
func (c *Collection) getRemainingCapacity(deckID int64) (RemainingCapacity, error) {
	cfg, err := c.DeckConfigFor(deckID)
	if err != nil {
		return RemainingCapacity{}, err
	}
	newDone, reviewDone, err := c.getDeckTodayCounts(deckID)
	if err != nil {
		return RemainingCapacity{}, err
	}

	newPerDay := cfg.New.PerDay
	if cfg.Algo == AlgoAI {
		dueToday, err := c.countReviewsDueToday(deckID)
		if err != nil {
			return RemainingCapacity{}, err
		}
		newPerDay = solveDailyNewCap(cfg, dueToday)
	}

	newRemaining := newPerDay - newDone
	if newRemaining < 0 {
		newRemaining = 0
	}
	reviewRemaining := cfg.Rev.PerDay - reviewDone
	if reviewRemaining < 0 {
		reviewRemaining = 0
	}

	return RemainingCapacity{
		CanShowNew:      newRemaining > 0,
		CanShowReview:   reviewRemaining > 0,
		NewRemaining:    newRemaining,
		ReviewRemaining: reviewRemaining,
	}, nil
}

// countReviewsDueToday counts deckID's (and its descendants') review-queue
// cards whose due day has arrived, the reviewsDueToday input
// solveDailyNewCap needs to size today's new-card admission against the
// deck's minute budget.
func (c *Collection) countReviewsDueToday(deckID int64) (int, error) {
	ids, err := c.DescendantDeckIDs(deckID)
	if err != nil {
		return 0, err
	}
	scope := make(map[int64]bool, len(ids))
	for _, id := range ids {
		scope[id] = true
	}

	dayNum := c.currentDayKey()
	count := 0
	for _, card := range c.Cards {
		if !scope[card.DeckID] {
			continue
		}
		if card.Queue == QueueReview && card.Due <= dayNum {
			count++
		}
	}
	return count, nil
}
