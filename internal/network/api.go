// Package network - api.go
// REST bridge for the mystery content tool and the match archive.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/contagio-game/server/internal/domain/mystery"
	"github.com/contagio-game/server/internal/infra/storage"
	"github.com/contagio-game/server/internal/platform/logger"
)

// APIBridge handles the HTTP endpoints that live outside the match loop:
// mystery content editing and finished-match lookups.
type APIBridge struct {
	mysteries storage.MysteryRepository
	matches   storage.MatchRepository
	logger    *logger.Logger
}

// NewAPIBridge creates the REST handler set.
func NewAPIBridge(mysteries storage.MysteryRepository, matches storage.MatchRepository, log *logger.Logger) *APIBridge {
	return &APIBridge{
		mysteries: mysteries,
		matches:   matches,
		logger:    log,
	}
}

// HandleMysteries serves the mystery content collection.
// POST /api/mysteries submits a new entry, GET /api/mysteries lists them all.
func (ab *APIBridge) HandleMysteries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		ab.createMystery(w, r)
	case http.MethodGet:
		ab.listMysteries(w, r)
	default:
		ab.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (ab *APIBridge) createMystery(w http.ResponseWriter, r *http.Request) {
	var m mystery.Mystery
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		ab.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := m.Validate(); err != nil {
		ab.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	good, _ := json.Marshal(m.GoodClues)
	bad, _ := json.Marshal(m.BadClues)
	rec := storage.MysteryRecord{
		ID:        uuid.NewString(),
		Word:      m.Word,
		GoodClues: string(good),
		BadClues:  string(bad),
		CreatedAt: time.Now(),
	}
	if err := ab.mysteries.Save(r.Context(), rec); err != nil {
		ab.logger.Error("Failed to save mystery: " + err.Error())
		ab.jsonError(w, "Storage error", http.StatusInternalServerError)
		return
	}

	ab.logger.Event("MYSTERY_CREATED", rec.ID, "Word:"+m.Word)
	ab.jsonSuccess(w, map[string]interface{}{
		"success": true,
		"id":      rec.ID,
	})
}

func (ab *APIBridge) listMysteries(w http.ResponseWriter, r *http.Request) {
	recs, err := ab.mysteries.GetAll(r.Context())
	if err != nil {
		ab.logger.Error("Failed to list mysteries: " + err.Error())
		ab.jsonError(w, "Storage error", http.StatusInternalServerError)
		return
	}

	out := make([]mystery.Mystery, 0, len(recs))
	for _, rec := range recs {
		var m mystery.Mystery
		m.Word = rec.Word
		if err := json.Unmarshal([]byte(rec.GoodClues), &m.GoodClues); err != nil {
			continue
		}
		if rec.BadClues != "" {
			json.Unmarshal([]byte(rec.BadClues), &m.BadClues)
		}
		out = append(out, m)
	}
	ab.jsonSuccess(w, out)
}

// HandleMatchHistory returns archived match results.
// GET /api/matches?limit=N or GET /api/matches?id=MATCH_ID
func (ab *APIBridge) HandleMatchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ab.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		rec, err := ab.matches.GetByID(r.Context(), id)
		if err != nil {
			ab.jsonError(w, "Storage error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			ab.jsonError(w, "Match not found", http.StatusNotFound)
			return
		}
		ab.jsonSuccess(w, rec)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	recs, err := ab.matches.GetRecent(r.Context(), limit)
	if err != nil {
		ab.jsonError(w, "Storage error", http.StatusInternalServerError)
		return
	}
	ab.jsonSuccess(w, recs)
}

// RegisterRoutes sets up the REST API routes.
func (ab *APIBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/mysteries", ab.HandleMysteries)
	mux.HandleFunc("/api/matches", ab.HandleMatchHistory)
}

// jsonError sends an error response.
func (ab *APIBridge) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (ab *APIBridge) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
