package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/apas/internal/domain/catalog"
)

// CatalogProvider exposes the sport catalog.
type CatalogProvider interface {
	Catalog() *catalog.Catalog
}

// CatalogHandler serves sports and registration reference data.
type CatalogHandler struct {
	deps CatalogProvider
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogProvider) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type sportDetail struct {
	catalog.Sport
	Questions   int `json:"questions"`
	PassPercent int `json:"passPercent"`
}

// HandleListSports handles GET /api/v1/sports?category=.
func (h *CatalogHandler) HandleListSports(w http.ResponseWriter, r *http.Request) {
	sports := h.deps.Catalog().Sports()
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filtered := make([]catalog.Sport, 0, len(sports))
		for _, s := range sports {
			if strings.EqualFold(s.Category, category) {
				filtered = append(filtered, s)
			}
		}
		sports = filtered
	}
	writeJSON(w, http.StatusOK, sports)
}

// HandleGetSport handles GET /api/v1/sports/{id}. Names are accepted too.
func (h *CatalogHandler) HandleGetSport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sport"
	c := h.deps.Catalog()
	sport, err := c.Sport(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownSport) {
			writeError(w, http.StatusNotFound, "unknown_sport", Wrap(op, err))
			return
		}
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sportDetail{
		Sport:       sport,
		Questions:   len(c.Bank(sport.ID)),
		PassPercent: c.PassPercent(),
	})
}

// HandleCategories handles GET /api/v1/categories.
func (h *CatalogHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Catalog().Categories())
}

// HandleStates handles GET /api/v1/states.
func (h *CatalogHandler) HandleStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Catalog().States())
}
