package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.UGCPolicy()

func sanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// APIHandler is the HTTP Host from spec.md §4.7's external contracts:
// it drives a Scheduler (not a raw Collection) and persists through a
// SnapshotStore, the way the teacher's APIHandler drove a Store
// directly. Kept as the same struct-of-handlers shape the teacher uses
// rather than per-route closures, since that is this teacher's idiom.
type APIHandler struct {
	sched   *Scheduler
	store   SnapshotStore
	backups *BackupManager
	save    *Debouncer
}

func NewAPIHandler(sched *Scheduler, store SnapshotStore, backups *BackupManager) *APIHandler {
	h := &APIHandler{sched: sched, store: store, backups: backups}
	h.save = NewDebouncer(saveDebounceInterval, h.persist)
	return h
}

func (h *APIHandler) persist() {
	h.sched.ClearBuriedSiblings()
	if err := h.store.SaveSnapshot(h.sched.Col); err != nil {
		// Non-fatal per spec.md §4.5: logged, retried on next debounce.
		logf("snapshot save failed: %v", err)
	}
}

// Request/response types

type AnswerCardRequest struct {
	Rating      int `json:"rating"` // 1=Again, 2=Hard, 3=Good, 4=Easy
	TimeTakenMs int `json:"timeTakenMs"`
}

type CreateDeckRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parentId,omitempty"`
}

type CreateNoteRequest struct {
	ModelID int64             `json:"modelId"`
	DeckID  int64             `json:"deckId"`
	Fields  map[string]string `json:"fields"`
	Tags    []string          `json:"tags"`
}

type CardView struct {
	ID     int64  `json:"id"`
	NoteID int64  `json:"noteId"`
	DeckID int64  `json:"deckId"`
	Type   string `json:"type"`
	Queue  string `json:"queue"`
	Due    int64  `json:"due"`
	Ivl    int    `json:"ivl"`
	Front  string `json:"front"`
	Back   string `json:"back"`
}

func (h *APIHandler) cardView(card *Card) (CardView, error) {
	front, back, err := h.sched.Col.RenderCard(card)
	if err != nil {
		return CardView{}, err
	}
	return CardView{
		ID:     card.ID,
		NoteID: card.NoteID,
		DeckID: card.DeckID,
		Type:   card.Type.String(),
		Queue:  card.Queue.String(),
		Due:    card.Due,
		Ivl:    card.Ivl,
		Front:  sanitizeHTML(front),
		Back:   sanitizeHTML(back),
	}, nil
}

func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) GetNext(w http.ResponseWriter, r *http.Request) {
	card, ok, err := h.sched.GetNext()
	if err != nil {
		respondError(w, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"card": nil})
		return
	}
	view, err := h.cardView(card)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"card": view})
}

func (h *APIHandler) PeekNext(w http.ResponseWriter, r *http.Request) {
	card, ok, err := h.sched.PeekNext()
	if err != nil {
		respondError(w, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"card": nil})
		return
	}
	view, err := h.cardView(card)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"card": view})
}

func (h *APIHandler) AnswerCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	var req AnswerCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.sched.Answer(id, Grade(req.Rating), req.TimeTakenMs)
	if err != nil {
		respondError(w, err)
		return
	}
	h.save.Trigger()
	respondJSON(w, http.StatusOK, entry)
}

func (h *APIHandler) SetDeck(w http.ResponseWriter, r *http.Request) {
	deckID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid deck id", http.StatusBadRequest)
		return
	}
	h.sched.SetDeck(deckID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ClearBuriedSiblings(w http.ResponseWriter, r *http.Request) {
	h.sched.ClearBuriedSiblings()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) GetDeckStats(w http.ResponseWriter, r *http.Request) {
	deckID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid deck id", http.StatusBadRequest)
		return
	}
	stats, err := h.sched.Stats(deckID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks := make([]*Deck, 0, len(h.sched.Col.Decks))
	for _, d := range h.sched.Col.Decks {
		decks = append(decks, d)
	}
	respondJSON(w, http.StatusOK, decks)
}

func (h *APIHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = sanitizeHTML(req.Name)

	var parent *Deck
	if req.ParentID != 0 {
		p, err := h.sched.Col.GetDeck(req.ParentID)
		if err != nil {
			respondError(w, err)
			return
		}
		parent = p
	}

	deck, err := h.sched.Col.NewDeck(req.Name, parent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.save.Trigger()
	respondJSON(w, http.StatusCreated, deck)
}

func (h *APIHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid deck id", http.StatusBadRequest)
		return
	}
	deck, err := h.sched.Col.GetDeck(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deck)
}

func (h *APIHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := make([]*Model, 0, len(h.sched.Col.Models))
	for _, m := range h.sched.Col.Models {
		models = append(models, m)
	}
	respondJSON(w, http.StatusOK, models)
}

func (h *APIHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for k, v := range req.Fields {
		req.Fields[k] = sanitizeHTML(v)
	}

	note, cards, err := h.sched.Col.AddNote(req.DeckID, req.ModelID, req.Fields, req.Tags)
	if err != nil {
		respondError(w, err)
		return
	}
	h.save.Trigger()
	respondJSON(w, http.StatusCreated, map[string]any{"note": note, "cards": cards})
}

func (h *APIHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid note id", http.StatusBadRequest)
		return
	}
	note, ok := h.sched.Col.Notes[id]
	if !ok {
		http.Error(w, "note not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (h *APIHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	card, ok := h.sched.Col.Cards[id]
	if !ok {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	view, err := h.cardView(card)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *APIHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	if err := h.sched.Col.DeleteCard(id); err != nil {
		respondError(w, err)
		return
	}
	h.save.Trigger()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *APIHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	h.sched.ClearBuriedSiblings()
	path, err := h.backups.CreateBackup(h.sched.Col, "default")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"path": path})
}

type RestoreBackupRequest struct {
	Path string `json:"path"`
}

func (h *APIHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req RestoreBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.backups.RestoreBackup(h.sched.Col, req.Path); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	var schedErr *SchedError
	if errors.As(err, &schedErr) {
		switch schedErr.Kind {
		case KindNotFound:
			http.Error(w, schedErr.Error(), http.StatusNotFound)
		case KindInvalidState:
			http.Error(w, schedErr.Error(), http.StatusConflict)
		case KindInvariantViolation:
			http.Error(w, schedErr.Error(), http.StatusInternalServerError)
		default:
			http.Error(w, schedErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// NewRouter wires the chi router the way the teacher's main() does
// inline, extracted so main.go owns process startup
// while the route tree stays testable on its own.
func NewRouter(h *APIHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Get("/next", h.GetNext)
		r.Get("/peek", h.PeekNext)
		r.Post("/clear-buried", h.ClearBuriedSiblings)

		r.Get("/decks", h.ListDecks)
		r.Post("/decks", h.CreateDeck)
		r.Get("/decks/{id}", h.GetDeck)
		r.Get("/decks/{id}/stats", h.GetDeckStats)
		r.Post("/decks/{id}/select", h.SetDeck)

		r.Get("/models", h.ListModels)

		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)

		r.Get("/cards/{id}", h.GetCard)
		r.Delete("/cards/{id}", h.DeleteCard)
		r.Post("/cards/{id}/answer", h.AnswerCard)

		r.Post("/backups", h.CreateBackup)
		r.Post("/backups/restore", h.RestoreBackup)
	})

	return r
}

const saveDebounceInterval = 500_000_000 // 500ms, in time.Duration units (ns)
