// internal/returns/handler.go
package returns

import (
	"net/http"

	"eventrental/internal/apperr"
	"eventrental/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the returns endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Put("/event/{eventId}", h.HandleUpdate)
		r.Get("/event/{eventId}", h.HandleListByEvent)
		r.Get("/status/{status}", h.HandleListByStatus)
	})
}

type createRequest struct {
	EventID uuid.UUID    `json:"eventId"`
	Items   []ReturnItem `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	if req.EventID == uuid.Nil {
		web.Error(w, r, apperr.BadRequest("eventId is required"))
		return
	}

	result, err := h.service.CreateReturn(r.Context(), web.Actor(r.Context()), req.EventID, req.Items)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	eventID, err := web.PathUUID(r, "eventId")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req struct {
		Items []CorrectionItem `json:"items"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}

	result, err := h.service.UpdateReturn(r.Context(), web.Actor(r.Context()), eventID, req.Items)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, result)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), web.Actor(r.Context()), "", web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := web.PathUUID(r, "eventId")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	list, err := h.service.ListByEvent(r.Context(), web.Actor(r.Context()), eventID)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListByStatus(w http.ResponseWriter, r *http.Request) {
	status := Status(chi.URLParam(r, "status"))
	list, err := h.service.List(r.Context(), web.Actor(r.Context()), status, web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}
