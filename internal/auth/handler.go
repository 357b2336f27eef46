package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/httpx"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	activity       *shared.ActivityLogger
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. The activity logger may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, activity *shared.ActivityLogger) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		activity:       activity,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Login carries
// its own tighter rate limit on top of the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.currentSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.ErrorContext(r.Context(), "session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetIdentity(shared.Identity{
		PrincipalID: user.ID,
		Role:        string(user.Role),
		Email:       user.Email,
	})
	if _, err := h.csrfManager.RotateToken(r.Context(), sess); err != nil {
		h.logger.WarnContext(r.Context(), "rotate csrf token", slog.Any("error", err))
	}

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.WarnContext(r.Context(), "register session", slog.Any("error", err))
	}
	h.recordActivity(r, user.ID, shared.ActivityLogin, "user logged in")

	httpx.JSON(w, http.StatusOK, identityResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if id := sess.Identity(); id.Valid() {
			h.recordActivity(r, id.PrincipalID, shared.ActivityLogout, "user logged out")
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.WarnContext(r.Context(), "remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	httpx.JSON(w, http.StatusOK, identityResponse{
		ID:    identity.PrincipalID,
		Email: identity.Email,
		Role:  identity.Role,
	})
}

func (h *Handler) recordActivity(r *http.Request, actorID, activityType, description string) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Record(r.Context(), shared.ActivityEntry{
		ActorID:     actorID,
		Type:        activityType,
		Description: description,
	}); err != nil {
		h.logger.WarnContext(r.Context(), "record auth activity", slog.Any("error", err))
	}
}
