// Package taskapi exposes task and tag CRUD over HTTP. Every route requires a
// bearer token; task routes are scoped to the authenticated caller.
package taskapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskflow/cmd/internal/auth/access"
	"taskflow/cmd/internal/httpx"
	"taskflow/cmd/internal/tasks"
)

// DefaultMaxBodyBytes caps JSON request bodies when NewHandler gets 0.
const DefaultMaxBodyBytes = 1 << 20

// Handler wires /tasks and /tags.
type Handler struct {
	log     *slog.Logger
	maxBody int64

	svc   *tasks.Service
	guard *access.Guard
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, maxBodyBytes int64, svc *tasks.Service, guard *access.Guard) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil || guard == nil {
		return nil, errors.New("taskapi: nil dependency")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{log: log, maxBody: maxBodyBytes, svc: svc, guard: guard}, nil
}

// Register wires task and tag routes under prefix (e.g. "/api/v1").
func (h *Handler) Register(mux httpx.Router, prefix string) {
	if h == nil || mux == nil {
		return
	}
	prefix = strings.TrimRight(prefix, "/")

	mux.HandleFunc("GET "+prefix+"/tasks", h.handleListTasks)
	mux.HandleFunc("POST "+prefix+"/tasks", h.handleCreateTask)
	mux.HandleFunc("GET "+prefix+"/tasks/{id}", h.handleGetTask)
	mux.HandleFunc("PUT "+prefix+"/tasks/{id}", h.handleUpdateTask)
	mux.HandleFunc("DELETE "+prefix+"/tasks/{id}", h.handleDeleteTask)

	mux.HandleFunc("GET "+prefix+"/tags", h.handleListTags)
	mux.HandleFunc("POST "+prefix+"/tags", h.handleCreateTag)
	mux.HandleFunc("GET "+prefix+"/tags/{id}", h.handleGetTag)
	mux.HandleFunc("PUT "+prefix+"/tags/{id}", h.handleUpdateTag)
	mux.HandleFunc("DELETE "+prefix+"/tags/{id}", h.handleDeleteTag)
}

// ---- tasks ----

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}
	page, err := httpx.ParsePage(r)
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	list, err := h.svc.ListTasks(r.Context(), me.ID, page)
	if err != nil {
		h.writeTaskError(w, "tasks.list.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTaskResponses(list))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	in := tasks.NewTask{
		Title:       req.Title,
		Description: req.Description,
		TagIDs:      req.TagIDs,
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	if req.IsCompleted != nil {
		in.IsCompleted = *req.IsCompleted
	}

	t, err := h.svc.CreateTask(r.Context(), me.ID, in)
	if err != nil {
		h.writeTaskError(w, "tasks.create.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTaskResponse(t))
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	t, err := h.svc.GetTask(r.Context(), me.ID, id)
	if err != nil {
		h.writeTaskError(w, "tasks.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTaskResponse(t))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	var req updateTaskRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	t, err := h.svc.UpdateTask(r.Context(), me.ID, id, tasks.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Priority:    req.Priority,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		h.writeTaskError(w, "tasks.update.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTaskResponse(t))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	me, ok := httpx.Authenticate(w, r, h.guard, h.log)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	if err := h.svc.DeleteTask(r.Context(), me.ID, id); err != nil {
		h.writeTaskError(w, "tasks.delete.fail", err)
		return
	}
	httpx.NoContent(w)
}

// ---- tags ----

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Authenticate(w, r, h.guard, h.log); !ok {
		return
	}
	page, err := httpx.ParsePage(r)
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	list, err := h.svc.ListTags(r.Context(), page)
	if err != nil {
		h.writeTaskError(w, "tags.list.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTagResponses(list))
}

func (h *Handler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Authenticate(w, r, h.guard, h.log); !ok {
		return
	}

	var req createTagRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	g, err := h.svc.CreateTag(r.Context(), tasks.NewTag{Name: req.Name, Color: req.Color})
	if err != nil {
		h.writeTaskError(w, "tags.create.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTagResponse(g))
}

func (h *Handler) handleGetTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Authenticate(w, r, h.guard, h.log); !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	g, err := h.svc.GetTag(r.Context(), id)
	if err != nil {
		h.writeTaskError(w, "tags.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTagResponse(g))
}

func (h *Handler) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Authenticate(w, r, h.guard, h.log); !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	var req updateTagRequest
	if err := httpx.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_json", "invalid request body")
		return
	}

	g, err := h.svc.UpdateTag(r.Context(), id, tasks.TagPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		h.writeTaskError(w, "tags.update.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTagResponse(g))
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Authenticate(w, r, h.guard, h.log); !ok {
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteValidation(w, err)
		return
	}

	if err := h.svc.DeleteTag(r.Context(), id); err != nil {
		h.writeTaskError(w, "tags.delete.fail", err)
		return
	}
	httpx.NoContent(w)
}

// ---- helpers ----

func (h *Handler) writeTaskError(w http.ResponseWriter, event string, err error) {
	var (
		opErr tasks.OpError
		nf    tasks.NotFoundError
	)
	switch {
	case tasks.IsConflict(err):
		httpx.WriteError(w, http.StatusBadRequest, "conflict", "tag name already exists")
	case errors.As(err, &opErr) && tasks.IsInvalidInput(err):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", opErr.Msg)
	case errors.As(err, &nf):
		httpx.WriteError(w, http.StatusNotFound, "not_found", nf.Resource+" not found")
	default:
		httpx.WriteServerError(w, h.log, event, err)
	}
}
