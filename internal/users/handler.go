// internal/users/handler.go
package users

import (
	"net/http"

	"eventrental/internal/web"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the user endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/users", h.HandleCreate)
	r.Get("/users", h.HandleList)
	r.Get("/users/{id}", h.HandleGet)
	r.Put("/users/{id}", h.HandleUpdateWorker)
	r.Patch("/users/{id}/inactivate", h.HandleInactivate)
	r.Delete("/users/{id}", h.HandleDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), web.Actor(r.Context()), req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	role := Role(r.URL.Query().Get("role"))
	list, err := h.service.ListUsers(r.Context(), web.Actor(r.Context()), role, web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateWorker(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req UpdateWorkerInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	user, err := h.service.UpdateWorker(r.Context(), web.Actor(r.Context()), id, req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleInactivate(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	user, err := h.service.InactivateWorker(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, user)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	if err := h.service.DeleteWorker(r.Context(), web.Actor(r.Context()), id); err != nil {
		web.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
