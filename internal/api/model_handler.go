package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rovesti/fabrica/internal/domain"
)

// ListModels returns the model catalog, optionally filtered by
// category.
// GET /api/v1/models?category=...
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	categories := domain.GenerationStepTypes()
	if c := r.URL.Query().Get("category"); c != "" {
		categories = []string{c}
	}

	var result []ModelResponse
	for _, category := range categories {
		for _, d := range h.models.ForCategory(category) {
			result = append(result, ModelResponse{
				ID:             d.ID,
				Category:       d.Category,
				Provider:       d.Provider,
				RequiredParams: d.RequiredParams,
				OptionalParams: d.OptionalParams,
				Default:        d.Default,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].ID < result[j].ID
	})

	List(w, result, len(result))
}

// EstimateConfig validates a config and returns its dry-run cost.
// POST /api/v1/estimate
func (h *Handler) EstimateConfig(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	estimate, err := h.coordinator.Estimate(&req.Config)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	Success(w, EstimateResponse{
		Total:     estimate.Total,
		Breakdown: estimate.Breakdown,
		Warnings:  estimate.Warnings,
	})
}
