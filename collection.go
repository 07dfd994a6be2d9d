package main

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Collection is the in-memory Data Store described by spec.md §4.2:
// typed repositories over entity maps, keyed by id. It generalizes the
// teacher's flat Collection struct (collection.go) which already held
// maps of Notes/Cards/Decks; here every mutation bumps Header.Mod and
// stamps Header.USN, and every delete appends a Grave, per spec.md §3's
// global invariants.
type Collection struct {
	clock Clock
	ids   *IDGen

	Header      CollectionHeader                    `json:"col"`
	Decks       map[int64]*Deck                      `json:"decks"`
	DeckConfigs map[int64]*DeckConfig                `json:"deckConfigs"`
	Models      map[int64]*Model                      `json:"models"`
	Notes       map[int64]*Note                       `json:"notes"`
	Cards       map[int64]*Card                       `json:"cards"`
	Revlog      []ReviewLogEntry                      `json:"revlog"`
	Graves      []Grave                               `json:"graves"`
	TodayUsage  map[TodayUsageKey]*TodayUsageRecord   `json:"-"`

	nextModelID  int64
	nextNoteID   int64
	nextCardID   int64
	nextDeckID   int64
	nextConfigID int64
}

// NewCollection creates an empty collection with a reserved "Default"
// deck, mirroring the teacher's NewCollection() constructor.
func NewCollection(clock Clock) *Collection {
	c := &Collection{
		clock:        clock,
		ids:          NewIDGen(clock),
		Decks:        make(map[int64]*Deck),
		DeckConfigs:  make(map[int64]*DeckConfig),
		Models:       make(map[int64]*Model),
		Notes:        make(map[int64]*Note),
		Cards:        make(map[int64]*Card),
		TodayUsage:   make(map[TodayUsageKey]*TodayUsageRecord),
		nextModelID:  1,
		nextNoteID:   1,
		nextCardID:   1,
		nextDeckID:   2, // 1 is reserved for Default
		nextConfigID: 2,
	}
	c.Header = CollectionHeader{
		CreationEpoch: clock.Now().Unix(),
		Mod:           clock.Now().Unix(),
	}

	defaultConfig := DefaultDeckConfig(1)
	c.DeckConfigs[1] = &defaultConfig

	c.Decks[DefaultDeckID] = &Deck{ID: DefaultDeckID, Name: "Default", ConfigID: 1}

	for _, m := range builtinModels() {
		m := m
		c.Models[m.ID] = &m
		if m.ID >= c.nextModelID {
			c.nextModelID = m.ID + 1
		}
	}

	return c
}

func (c *Collection) touch() int64 {
	now := c.clock.Now().Unix()
	if now <= c.Header.Mod {
		now = c.Header.Mod + 1
	}
	c.Header.Mod = now
	c.Header.USN++
	return now
}

// NewDeck creates a deck under the given parent (nil for root). Deck
// names are hierarchical, "::"-delimited per spec.md §3.
func (c *Collection) NewDeck(name string, parent *Deck) (*Deck, error) {
	fullName := name
	if parent != nil {
		fullName = parent.Name + deckNameDelim + name
	}
	for _, d := range c.Decks {
		if d.Name == fullName {
			return nil, fmt.Errorf("deck name already exists: %s", fullName)
		}
	}

	id := c.nextDeckID
	c.nextDeckID++
	mod := c.touch()

	configID := int64(1)
	if parent != nil {
		configID = parent.ConfigID
	}

	d := &Deck{ID: id, Name: fullName, ConfigID: configID, Mod: mod, USN: c.Header.USN}
	c.Decks[id] = d
	return d, nil
}

func (c *Collection) GetDeck(id int64) (*Deck, error) {
	d, ok := c.Decks[id]
	if !ok {
		return nil, notFound("GetDeck", fmt.Errorf("deck %d", id))
	}
	return d, nil
}

func (c *Collection) DeckConfigFor(deckID int64) (*DeckConfig, error) {
	d, err := c.GetDeck(deckID)
	if err != nil {
		return nil, err
	}
	cfg, ok := c.DeckConfigs[d.ConfigID]
	if !ok {
		return nil, notFound("DeckConfigFor", fmt.Errorf("config %d", d.ConfigID))
	}
	return cfg, nil
}

// DescendantDeckIDs returns deckID and every deck whose hierarchical
// name is a child of it, per the "A::B::C" convention in spec.md §3.
func (c *Collection) DescendantDeckIDs(deckID int64) ([]int64, error) {
	root, err := c.GetDeck(deckID)
	if err != nil {
		return nil, err
	}
	ids := []int64{deckID}
	prefix := root.Name + deckNameDelim
	for id, d := range c.Decks {
		if id == deckID {
			continue
		}
		if strings.HasPrefix(d.Name, prefix) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Collection) DeleteCard(id int64) error {
	card, ok := c.Cards[id]
	if !ok {
		return notFound("DeleteCard", fmt.Errorf("card %d", id))
	}
	delete(c.Cards, id)
	c.touch()
	c.Graves = append(c.Graves, Grave{USN: c.Header.USN, OID: id, Kind: GraveCard})

	// If this was the last sibling, the note is deleted too.
	remaining := false
	for _, other := range c.Cards {
		if other.NoteID == card.NoteID {
			remaining = true
			break
		}
	}
	if !remaining {
		delete(c.Notes, card.NoteID)
		c.Graves = append(c.Graves, Grave{USN: c.Header.USN, OID: card.NoteID, Kind: GraveNote})
	}
	return nil
}

/* --------------------------
   Note -> Card generation
   (kept close to the teacher's collection.go: template rendering and
   cloze extraction are orthogonal to the scheduling rewrite.)
-------------------------- */

var fieldTokenRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)
var clozeRe = regexp.MustCompile(`\{\{c(\d+)::(.*?)(?:::([^}]*))?\}\}`)

// AddNote creates a note and generates its sibling cards from the
// model's templates, the way the teacher's AddNote does, generalized to
// the new Card/Model shape and to cloze + image-occlusion models.
func (c *Collection) AddNote(deckID int64, modelID int64, fields map[string]string, tags []string) (*Note, []*Card, error) {
	model, ok := c.Models[modelID]
	if !ok {
		return nil, nil, notFound("AddNote", fmt.Errorf("model %d", modelID))
	}
	if _, err := c.GetDeck(deckID); err != nil {
		return nil, nil, err
	}

	noteID := c.nextNoteID
	c.nextNoteID++
	mod := c.touch()

	n := &Note{
		ID:         noteID,
		ModelID:    modelID,
		FieldMap:   fields,
		Tags:       tags,
		ModifiedAt: mod,
		USN:        c.Header.USN,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	c.Notes[noteID] = n

	cards, err := generateCardsFromNote(*model, *n, deckID)
	if err != nil {
		return nil, nil, err
	}

	var out []*Card
	for _, card := range cards {
		card.ID = c.nextCardID
		c.nextCardID++
		card.Due = c.Header.NextPos
		c.Header.NextPos++
		card.USN = c.Header.USN
		card.Mod = mod
		c.Cards[card.ID] = card
		out = append(out, card)
	}
	return n, out, nil
}

func generateCardsFromNote(m Model, n Note, deckID int64) ([]*Card, error) {
	var cards []*Card

	for ord, tmpl := range m.Templates {
		if tmpl.IfFieldNonEmpty != "" {
			if strings.TrimSpace(n.FieldMap[tmpl.IfFieldNonEmpty]) == "" {
				continue
			}
		}

		if m.Kind == ModelCloze {
			ordinals := extractClozeOrdinals(n.FieldMap["Text"])
			if len(ordinals) == 0 {
				continue
			}
			for _, clozeOrd := range ordinals {
				cards = append(cards, &Card{
					NoteID:  n.ID,
					DeckID:  deckID,
					Ordinal: clozeOrd,
					Type:    TypeNew,
					Queue:   QueueNew,
					Factor:  2500,
				})
			}
			continue
		}

		cards = append(cards, &Card{
			NoteID:  n.ID,
			DeckID:  deckID,
			Ordinal: ord,
			Type:    TypeNew,
			Queue:   QueueNew,
			Factor:  2500,
		})
	}

	return cards, nil
}

func renderTemplate(tmpl string, fields map[string]string) string {
	return fieldTokenRe.ReplaceAllStringFunc(tmpl, func(token string) string {
		m := fieldTokenRe.FindStringSubmatch(token)
		if len(m) != 2 {
			return token
		}
		key := strings.TrimSpace(m[1])
		if strings.HasPrefix(key, "type:") {
			fieldName := strings.TrimSpace(strings.TrimPrefix(key, "type:"))
			if fields[fieldName] == "" {
				return "[type: empty]"
			}
			return "[type your answer here]"
		}
		if key == "cloze:Text" {
			return fields["Text"]
		}
		return fields[key]
	})
}

func renderClozeSide(text string, targetOrdinal int, reveal bool) string {
	return clozeRe.ReplaceAllStringFunc(text, func(token string) string {
		m := clozeRe.FindStringSubmatch(token)
		if len(m) < 3 {
			return token
		}
		ord, _ := strconv.Atoi(m[1])
		answer := m[2]
		hint := ""
		if len(m) >= 4 {
			hint = m[3]
		}
		if reveal {
			if ord == targetOrdinal {
				return fmt.Sprintf("**%s**", answer)
			}
			return answer
		}
		if ord == targetOrdinal {
			if strings.TrimSpace(hint) != "" {
				return fmt.Sprintf("[%s]", hint)
			}
			return "[...]"
		}
		return answer
	})
}

func extractClozeOrdinals(text string) []int {
	seen := map[int]bool{}
	for _, m := range clozeRe.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		seen[n] = true
	}
	var ords []int
	for k := range seen {
		ords = append(ords, k)
	}
	sort.Ints(ords)
	return ords
}

// RenderCard renders a card's front/back text from its note's current
// field values, resolving cloze deletions for the card's ordinal. The
// teacher stored rendered Front/Back directly on the Card; spec.md's
// Card has no such fields (content is derived, not owned state), so
// rendering happens on demand here instead.
func (c *Collection) RenderCard(card *Card) (front, back string, err error) {
	note, ok := c.Notes[card.NoteID]
	if !ok {
		return "", "", notFound("RenderCard", fmt.Errorf("note %d", card.NoteID))
	}
	model, ok := c.Models[note.ModelID]
	if !ok {
		return "", "", notFound("RenderCard", fmt.Errorf("model %d", note.ModelID))
	}
	if card.Ordinal >= len(model.Templates) && model.Kind != ModelCloze {
		return "", "", invalidState("RenderCard", fmt.Errorf("ordinal %d out of range", card.Ordinal))
	}

	if model.Kind == ModelCloze {
		tmpl := model.Templates[0]
		front = renderClozeSide(renderTemplate(tmpl.QFmt, note.FieldMap), card.Ordinal, false)
		back = renderClozeSide(renderTemplate(tmpl.AFmt, note.FieldMap), card.Ordinal, true)
		return front, back, nil
	}

	tmpl := model.Templates[card.Ordinal]
	front = renderTemplate(tmpl.QFmt, note.FieldMap)
	back = renderTemplate(tmpl.AFmt, note.FieldMap)
	return front, back, nil
}

func builtinModels() []Model {
	return []Model{
		{
			ID:     1,
			Name:   "Basic",
			Kind:   ModelStandard,
			Fields: []string{"Front", "Back"},
			Templates: []CardTemplate{
				{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{Back}}"},
			},
		},
		{
			ID:     2,
			Name:   "Basic (and reversed card)",
			Kind:   ModelStandard,
			Fields: []string{"Front", "Back"},
			Templates: []CardTemplate{
				{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{Back}}"},
				{Name: "Card 2", QFmt: "{{Back}}", AFmt: "{{Front}}"},
			},
		},
		{
			ID:     3,
			Name:   "Cloze",
			Kind:   ModelCloze,
			Fields: []string{"Text", "Extra"},
			Templates: []CardTemplate{
				{Name: "Cloze", QFmt: "{{cloze:Text}}", AFmt: "{{cloze:Text}}\n\n{{Extra}}"},
			},
		},
		{
			ID:     4,
			Name:   "Image Occlusion",
			Kind:   ModelImageOcclusion,
			Fields: []string{"Image", "Header", "Back Extra"},
			Templates: []CardTemplate{
				{Name: "Occlusion", QFmt: "{{Image}}", AFmt: "{{Image}}\n\n{{Back Extra}}"},
			},
		},
	}
}
