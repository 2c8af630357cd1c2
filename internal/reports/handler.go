// internal/reports/handler.go
package reports

import (
	"net/http"
	"strconv"
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

// Routes mounts the report endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/monthly", h.HandleMonthly)
		r.Get("/yearly", h.HandleYearly)
		r.Get("/date-range", h.HandleDateRange)
		r.Get("/events/{id}", h.HandleEvent)
	})
}

func (h *Handler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year, err := intParam(r, "year", now.Year())
	if err != nil {
		web.Error(w, r, err)
		return
	}
	month, err := intParam(r, "month", int(now.Month()))
	if err != nil {
		web.Error(w, r, err)
		return
	}

	summary, err := h.service.Monthly(r.Context(), web.Actor(r.Context()), year, time.Month(month))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleYearly(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", time.Now().UTC().Year())
	if err != nil {
		web.Error(w, r, err)
		return
	}

	totals, err := h.service.Yearly(r.Context(), web.Actor(r.Context()), year)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, totals)
}

func (h *Handler) HandleDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		web.Error(w, r, apperr.BadRequest("invalid from: expected RFC3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		web.Error(w, r, apperr.BadRequest("invalid to: expected RFC3339 timestamp"))
		return
	}

	summary, err := h.service.DateRange(r.Context(), web.Actor(r.Context()), from, to)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}

	report, err := h.service.EventReport(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, report)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest("invalid %s", name)
	}
	return v, nil
}
