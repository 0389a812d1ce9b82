package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/estimation"
	"github.com/aristath/folio/internal/modules/optimization"
)

// Handler exposes the optimization pipeline over HTTP.
type Handler struct {
	service *Service
	repo    *Repository
	source  HoldingsSource
	log     zerolog.Logger
}

// NewHandler creates the portfolio HTTP handler. repo may be nil when
// results are not persisted.
func NewHandler(service *Service, repo *Repository, source HoldingsSource, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		source:  source,
		log:     log.With().Str("component", "portfolio_handler").Logger(),
	}
}

// RegisterRoutes mounts the portfolio routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/optimize", h.handleOptimize)
		r.Post("/refresh-prices", h.handleRefreshPrices)
		r.Get("/allocation", h.handleAllocation)
		r.Get("/results", h.handleListResults)
		r.Get("/results/{id}", h.handleGetResult)
	})
}

func (h *Handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizationRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	outcome, err := h.service.Optimize(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, optimization.ErrUnknownMethod), errors.Is(err, estimation.ErrUnknownMethod):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, estimation.ErrTooManyScenarios), errors.Is(err, ErrInvalidRiskTolerance):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Optimization request failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.RefreshPrices(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Price refresh failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *Handler) handleAllocation(w http.ResponseWriter, r *http.Request) {
	items, err := h.source.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch holdings for allocation")
		writeError(w, http.StatusInternalServerError, "failed to fetch holdings")
		return
	}

	entries, total := currentAllocation(items)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_value": total,
		"by_symbol":   entries,
		"by_category": allocationByCategory(entries),
	})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusNotFound, "result persistence is disabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	summaries, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list results")
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if summaries == nil {
		summaries = []ResultSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusNotFound, "result persistence is disabled")
		return
	}

	outcome, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrResultNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to load result")
		writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
