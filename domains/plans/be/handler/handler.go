package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/platform/go/httpx"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// Handler exposes the plan usage snapshot the UI renders quota meters from.
type Handler struct {
	usage  *plan.UsageService
	guard  *plan.Guard
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(usage *plan.UsageService, guard *plan.Guard, logger *zap.Logger) *Handler {
	if usage == nil {
		panic("usage service is required")
	}
	if guard == nil {
		panic("quota guard is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{usage: usage, guard: guard, logger: logger}
}

// Routes returns the tenant-scoped router for /plans.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/usage", h.getUsage)
	r.Get("/limits/{feature}", h.checkLimit)
	return r
}

// getUsage always answers 200 with a well-formed snapshot; degraded data is
// preferable to a broken quota meter.
func (h *Handler) getUsage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.usage.GetUsageStats(r.Context()))
}

type limitResponse struct {
	Feature plan.Feature `json:"feature"`
	Allowed bool         `json:"allowed"`
}

func (h *Handler) checkLimit(w http.ResponseWriter, r *http.Request) {
	feature := plan.Feature(chi.URLParam(r, "feature"))
	if feature != plan.FeatureBarbers && feature != plan.FeatureAppointments {
		httpx.WriteError(w, http.StatusNotFound, "UNKNOWN_FEATURE", "unknown feature")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, limitResponse{
		Feature: feature,
		Allowed: h.guard.CheckLimits(r.Context(), feature),
	})
}
