// internal/events/handler.go
package events

import (
	"net/http"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/web"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the event endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Patch("/{id}/status", h.HandleUpdateStatus)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/modifications", h.HandleHistory)
	})
	r.Get("/workers/{id}/events", h.HandleListByWorker)
	r.Get("/event-items", h.HandleListLineItems)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	details, err := h.service.Create(r.Context(), web.Actor(r.Context()), req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, details)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status")), Page: web.PageFrom(r)}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			web.Error(w, r, apperr.BadRequest("invalid %s: expected RFC3339 timestamp", name))
			return
		}
		*dst = &t
	}

	list, err := h.service.List(r.Context(), web.Actor(r.Context()), filter)
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

	details, err := h.service.Get(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, details)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req Patch
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	details, err := h.service.Update(r.Context(), web.Actor(r.Context()), id, req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, details)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	event, err := h.service.UpdateStatus(r.Context(), web.Actor(r.Context()), id, req.Status)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, event)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), web.Actor(r.Context()), id); err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	history, err := h.service.History(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, history)
}

func (h *Handler) HandleListByWorker(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	list, err := h.service.ListByWorker(r.Context(), web.Actor(r.Context()), id, web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListLineItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListLineItems(r.Context(), web.Actor(r.Context()), web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}
