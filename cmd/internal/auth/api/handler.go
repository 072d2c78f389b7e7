package authapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"taskflow/cmd/identity"
	"taskflow/cmd/internal/auth/access"
	"taskflow/cmd/internal/httpx"
)

// Handler wires registration, login, and account endpoints.
type Handler struct {
	log *slog.Logger
	cfg Config

	users *identity.Service
	auth  *access.Authenticator
	guard *access.Guard

	auditEvents *prometheus.CounterVec
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithAuditCounter counts audit records by action. The vector must have an
// "action" label.
func WithAuditCounter(c *prometheus.CounterVec) HandlerOption {
	return func(h *Handler) {
		if h == nil || c == nil {
			return
		}
		h.auditEvents = c
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users *identity.Service, auth *access.Authenticator, guard *access.Guard, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil || auth == nil || guard == nil {
		return nil, errors.New("authapi: nil dependency")
	}

	h := &Handler{
		log:   log,
		cfg:   cfg.normalized(),
		users: users,
		auth:  auth,
		guard: guard,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth and user routes under prefix (e.g. "/api/v1").
func (h *Handler) Register(mux httpx.Router, prefix string) {
	if h == nil || mux == nil {
		return
	}
	prefix = strings.TrimRight(prefix, "/")

	mux.HandleFunc("POST "+prefix+"/auth/register", h.handleRegister)
	mux.HandleFunc("POST "+prefix+"/auth/login", h.handleLogin)

	mux.HandleFunc("GET "+prefix+"/users/me", h.handleMe)
	mux.HandleFunc("PUT "+prefix+"/users/me", h.handleUpdateMe)
	mux.HandleFunc("DELETE "+prefix+"/users/me", h.handleDeleteMe)

	mux.HandleFunc("GET "+prefix+"/users", h.handleListUsers)
	mux.HandleFunc("PATCH "+prefix+"/users/{id}", h.handleSetActive)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.users.Register(ctx, identity.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.writeIdentityError(w, "auth.register.fail", err)
		return
	}

	h.auditRegister(ctx, u.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_form", "invalid form body")
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "username and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	tok, err := h.auth.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, access.ErrInvalidCredentials) {
			h.auditLoginFailed(ctx, ip, ua, username, "invalid_credentials")
			httpx.WriteUnauthorized(w, "invalid_credentials", "incorrect username or password")
			return
		}
		httpx.WriteServerError(w, h.log, "auth.login.fail", err)
		return
	}

	h.auditLoginSuccess(ctx, tok.UserID, ip, ua, username)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: tok.AccessToken, TokenType: tok.TokenType})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}

	var req updateMeRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	u, err := h.users.Update(r.Context(), me.ID, identity.UpdateInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeIdentityError(w, "users.update_me.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.users.Delete(ctx, me.ID); err != nil {
		h.writeIdentityError(w, "users.delete_me.fail", err)
		return
	}
	h.auditUserDeleted(ctx, me.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	httpx.NoContent(w)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSuperuser(w, r); !ok {
		return
	}

	page, err := httpx.ParsePage(r)
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	users, err := h.users.List(r.Context(), page)
	if err != nil {
		httpx.WriteServerError(w, h.log, "users.list.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireSuperuser(w, r)
	if !ok {
		return
	}

	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	var req setActiveRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}
	if req.IsActive == nil {
		httpx.WriteValidation(w, fmt.Errorf("is_active is required"))
		return
	}

	ctx := r.Context()
	u, err := h.users.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		h.writeIdentityError(w, "users.set_active.fail", err)
		return
	}

	h.auditSetActive(ctx, admin.ID, u.ID, u.IsActive, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// ---- helpers ----

func (h *Handler) requireSuperuser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	u, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return identity.User{}, false
	}
	admin, err := h.guard.RequireSuperuser(u)
	if err != nil {
		httpx.WriteAccessError(w, h.log, "auth.guard.superuser.fail", err)
		return identity.User{}, false
	}
	return admin, true
}

func (h *Handler) writeIdentityError(w http.ResponseWriter, event string, err error) {
	if field, ok := identity.ConflictField(err); ok {
		httpx.WriteError(w, http.StatusBadRequest, "conflict", conflictMessage(field))
		return
	}
	var opErr identity.OpError
	switch {
	case errors.As(err, &opErr) && errors.Is(err, identity.ErrInvalidInput):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", opErr.Msg)
	case identity.IsNotFound(err):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "user not found")
	default:
		httpx.WriteServerError(w, h.log, event, err)
	}
}
