package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/domains/tenants/be/service"
	platformauth "github.com/trimly-app/trimly-saas/platform/go/auth"
	"github.com/trimly-app/trimly-saas/platform/go/httpx"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// Handler exposes the tenant registry over the platform-admin API.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the admin router for /admin/tenants.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{tenantID}", h.get)
	r.Patch("/{tenantID}", h.update)
	return r
}

type tenantResponse struct {
	ID            uuid.UUID     `json:"id"`
	Slug          string        `json:"slug"`
	DisplayName   *string       `json:"displayName,omitempty"`
	Status        string        `json:"status"`
	PlanType      plan.PlanType `json:"planType"`
	ShortTenantID string        `json:"shortTenantId"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type listResponse struct {
	Items      []tenantResponse `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

type createRequest struct {
	Slug        string        `json:"slug"`
	DisplayName *string       `json:"displayName"`
	PlanType    plan.PlanType `json:"planType"`
}

type updateRequest struct {
	DisplayName *string `json:"displayName"`
	Status      *string `json:"status"`
	PlanType    *string `json:"planType"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{Page: 1, PageSize: 20}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Page = n
		}
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.PageSize = n
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := service.StatusFromString(v)
		opts.Status = &status
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]tenantResponse, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok || creds == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "credentials required")
		return
	}
	createdBy, err := uuid.Parse(creds.ID)
	if err != nil {
		createdBy = uuid.Nil
	}

	t, err := h.svc.Create(r.Context(), service.CreateInput{
		Slug:        req.Slug,
		DisplayName: req.DisplayName,
		PlanType:    req.PlanType,
		CreatedBy:   createdBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/tenants/"+t.ID.String())
	httpx.WriteJSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid tenant id")
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid tenant id")
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	input := service.UpdateInput{DisplayName: req.DisplayName}
	if req.Status != nil {
		status := service.StatusFromString(*req.Status)
		input.Status = &status
	}
	if req.PlanType != nil {
		planType := plan.PlanType(*req.PlanType)
		input.PlanType = &planType
	}

	t, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND", "tenant not found")
	case errors.Is(err, service.ErrConflictSlug):
		httpx.WriteError(w, http.StatusConflict, "SLUG_CONFLICT", "tenant slug already exists")
	case errors.Is(err, service.ErrInvalidSlug):
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_SLUG", err.Error())
	default:
		h.logger.Error("tenant operation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func toResponse(t service.Tenant) tenantResponse {
	return tenantResponse{
		ID:            t.ID,
		Slug:          t.Slug,
		DisplayName:   t.DisplayName,
		Status:        string(t.Status),
		PlanType:      t.PlanType,
		ShortTenantID: t.ShortTenantID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
