// internal/server/handlers/intel.go

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"geointel/internal/domain/intel"
)

// IntelHandler handles fusion engine HTTP requests
type IntelHandler struct {
	engine intel.Engine
}

// NewIntelHandler creates a new intel handler
func NewIntelHandler(engine intel.Engine) *IntelHandler {
	return &IntelHandler{
		engine: engine,
	}
}

// ListSources returns the status of every feed
func (h *IntelHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Sources())
}

// EnableSource starts polling a feed
func (h *IntelHandler) EnableSource(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.engine.EnableSource)
}

// DisableSource stops polling a feed and clears its entities
func (h *IntelHandler) DisableSource(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.engine.DisableSource)
}

func (h *IntelHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	id := chi.URLParam(r, "id")
	if err := fn(id); err != nil {
		respondWithError(w, http.StatusNotFound, "Source not found", err)
		return
	}

	for _, st := range h.engine.Sources() {
		if st.ID == id {
			respondWithJSON(w, http.StatusOK, st)
			return
		}
	}
	respondWithError(w, http.StatusNotFound, "Source not found", ErrNotFound)
}

// GetEntities returns displayed entities, optionally restricted by ?kind=
func (h *IntelHandler) GetEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown kind", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, h.engine.Entities(kind))
}

// GetFixes returns authoritative entities as last reported by the feeds
func (h *IntelHandler) GetFixes(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown kind", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, h.engine.Fixes(kind))
}

// GetFiltered returns displayed entities passing the current criteria
func (h *IntelHandler) GetFiltered(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown kind", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, h.engine.Filtered(kind))
}

// GetCriteria returns the current filter criteria
func (h *IntelHandler) GetCriteria(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Criteria())
}

// PutCriteria replaces the filter criteria
func (h *IntelHandler) PutCriteria(w http.ResponseWriter, r *http.Request) {
	var c intel.Criteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.engine.SetCriteria(c); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid criteria", err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.Criteria())
}

// GetMetrics returns filtered counts and the threat score
func (h *IntelHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Metrics())
}

// GetTrails returns live trail segments
func (h *IntelHandler) GetTrails(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Trails())
}

// GetTooltip returns the structured hover payload of one entity
func (h *IntelHandler) GetTooltip(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	id := chi.URLParam(r, "id")

	tip, ok := h.engine.Tooltip(source, id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Entity not found", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, tip)
}
