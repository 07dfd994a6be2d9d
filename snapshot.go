package main

import (
	"encoding/json"
	"sync"
	"time"
)

// schemaVersion tags the snapshot wire format, per spec.md §6.
const schemaVersion = 1

// Snapshot is the whole-store JSON document spec.md §4.6/§6 describes.
// Bury state is intentionally absent: clearBuriedSiblings() must run
// before ToSnapshot() is called, per the caller contract in §4.5.
type Snapshot struct {
	SchemaVersion int                                `json:"schemaVersion"`
	Col           CollectionHeader                    `json:"col"`
	Decks         map[int64]*Deck                      `json:"decks"`
	DeckConfigs   map[int64]*DeckConfig                 `json:"deckConfigs"`
	Models        map[int64]*Model                      `json:"models"`
	Notes         map[int64]*Note                       `json:"notes"`
	Cards         map[int64]*Card                       `json:"cards"`
	Revlog        []ReviewLogEntry                      `json:"revlog"`
	Graves        []Grave                               `json:"graves"`
	TodayUsage    []TodayUsageRecord                    `json:"todayUsage"`
}

// ToSnapshot renders the collection's current state into the
// serializable shape. Callers must have already invoked
// clearBuriedSiblings on any in-flight Scheduler.
func (c *Collection) ToSnapshot() Snapshot {
	usage := make([]TodayUsageRecord, 0, len(c.TodayUsage))
	for _, rec := range c.TodayUsage {
		usage = append(usage, *rec)
	}
	return Snapshot{
		SchemaVersion: schemaVersion,
		Col:           c.Header,
		Decks:         c.Decks,
		DeckConfigs:   c.DeckConfigs,
		Models:        c.Models,
		Notes:         c.Notes,
		Cards:         c.Cards,
		Revlog:        c.Revlog,
		Graves:        c.Graves,
		TodayUsage:    usage,
	}
}

// Marshal serializes the collection to the versioned JSON wire format.
func (c *Collection) Marshal() ([]byte, error) {
	return json.Marshal(c.ToSnapshot())
}

// LoadSnapshot replaces every in-memory repository atomically from a
// decoded Snapshot, per spec.md §4.6: "load(store) replaces all
// in-memory repositories atomically; on parse error, the store remains
// unchanged."
func (c *Collection) LoadSnapshot(snap Snapshot) {
	c.Header = snap.Col
	c.Decks = snap.Decks
	c.DeckConfigs = snap.DeckConfigs
	c.Models = snap.Models
	c.Notes = snap.Notes
	c.Cards = snap.Cards
	c.Revlog = snap.Revlog
	c.Graves = snap.Graves

	c.TodayUsage = make(map[TodayUsageKey]*TodayUsageRecord, len(snap.TodayUsage))
	for i := range snap.TodayUsage {
		rec := snap.TodayUsage[i]
		key := TodayUsageKey{DeckID: rec.DeckID, DayKey: rec.DayKey}
		c.TodayUsage[key] = &rec
	}

	if c.Decks == nil {
		c.Decks = make(map[int64]*Deck)
	}
	if c.DeckConfigs == nil {
		c.DeckConfigs = make(map[int64]*DeckConfig)
	}
	if c.Models == nil {
		c.Models = make(map[int64]*Model)
	}
	if c.Notes == nil {
		c.Notes = make(map[int64]*Note)
	}
	if c.Cards == nil {
		c.Cards = make(map[int64]*Card)
	}
}

// Unmarshal decodes the versioned JSON wire format and atomically
// replaces c's repositories. On parse error the collection is left
// untouched.
func (c *Collection) Unmarshal(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ioFailure("Unmarshal", err)
	}
	if snap.SchemaVersion == 0 {
		return invariantViolation("Unmarshal", errMissingSchemaVersion)
	}
	c.LoadSnapshot(snap)
	return nil
}

var errMissingSchemaVersion = jsonErr("snapshot missing schemaVersion")

type jsonErr string

func (e jsonErr) Error() string { return string(e) }

// Debouncer coalesces repeated save requests into a single write after
// the input goes idle for at least `delay`, the way the teacher's host
// (server.go) calls persistence synchronously per request but spec.md
// §4.6 asks for a debounced save. Grounded on the common Go
// timer-reset debounce idiom; no pack example implements this
// directly, so it is built on stdlib time.Timer rather than adapting
// one.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	fn    func()
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn to run after delay, resetting any pending timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending debounced call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
