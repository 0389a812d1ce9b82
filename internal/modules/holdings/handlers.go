package holdings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes holdings CRUD over HTTP.
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates the HTTP handler for holdings.
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("component", "holdings_handler").Logger(),
	}
}

// RegisterRoutes mounts the holdings routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list holdings")
		writeError(w, http.StatusInternalServerError, "failed to list holdings")
		return
	}
	if items == nil {
		items = []Holding{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var holding Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.Create(r.Context(), &holding); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("symbol", holding.Symbol).Msg("Failed to create holding")
		writeError(w, http.StatusInternalServerError, "failed to create holding")
		return
	}

	writeJSON(w, http.StatusCreated, holding)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	holding, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrHoldingNotFound) {
			writeError(w, http.StatusNotFound, "holding not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to get holding")
		writeError(w, http.StatusInternalServerError, "failed to get holding")
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var holding Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	holding.ID = chi.URLParam(r, "id")

	if err := h.repo.Update(r.Context(), &holding); err != nil {
		switch {
		case errors.Is(err, ErrHoldingNotFound):
			writeError(w, http.StatusNotFound, "holding not found")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Str("id", holding.ID).Msg("Failed to update holding")
			writeError(w, http.StatusInternalServerError, "failed to update holding")
		}
		return
	}

	writeJSON(w, http.StatusOK, holding)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrHoldingNotFound) {
			writeError(w, http.StatusNotFound, "holding not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to delete holding")
		writeError(w, http.StatusInternalServerError, "failed to delete holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrEmptySymbol) ||
		errors.Is(err, ErrNonPositiveQty) ||
		errors.Is(err, ErrNegativeCost)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
