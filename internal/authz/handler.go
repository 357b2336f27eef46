package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/httpx"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// PermissionsHandler exposes the grant administration API as JSON.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *AdminService
	validator *validator.Validate
	guard     Guard
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *AdminService) *PermissionsHandler {
	return &PermissionsHandler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSuper)
		r.Get("/", h.listAll)
		r.Get("/routes", h.listRoutes)
		r.Get("/{principalID}", h.listGrants)
		r.Put("/{principalID}", h.replaceGrants)
	})
}

type principalGrantsResponse struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Active bool     `json:"active"`
	Routes []string `json:"routes"`
}

func (h *PermissionsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	all, err := h.service.ListAllPrincipalGrants(r.Context(), identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]principalGrantsResponse, 0, len(all))
	for _, pg := range all {
		routes := pg.Routes
		if routes == nil {
			routes = []string{}
		}
		out = append(out, principalGrantsResponse{
			ID:     pg.Principal.ID,
			Email:  pg.Principal.Email,
			Name:   pg.Principal.DisplayName,
			Role:   string(pg.Principal.Role),
			Active: pg.Principal.Active,
			Routes: routes,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"principals": out})
}

func (h *PermissionsHandler) listRoutes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"routes": h.service.AssignableRoutes()})
}

func (h *PermissionsHandler) listGrants(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	routes, err := h.service.ListGrants(r.Context(), identity, chi.URLParam(r, "principalID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"routes": routes})
}

type replaceGrantsRequest struct {
	Routes []string `json:"routes" validate:"required,dive,startswith=/"`
}

func (h *PermissionsHandler) replaceGrants(w http.ResponseWriter, r *http.Request) {
	var req replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	identity, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.ReplaceGrants(r.Context(), identity, chi.URLParam(r, "principalID"), req.Routes); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *PermissionsHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "super admin role required")
	case errors.Is(err, ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "principal not found")
	case errors.Is(err, ErrCannotModifySuper):
		httpx.Problem(w, http.StatusConflict, "Cannot Modify Super Admin", "super admins bypass route grants")
	default:
		if h.logger != nil {
			h.logger.ErrorContext(r.Context(), "permissions handler", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
