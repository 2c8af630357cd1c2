// internal/inventory/handler.go
package inventory

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

// Routes mounts materials, rental materials and categories.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/materials", func(r chi.Router) {
		r.Post("/", h.HandleCreateMaterial)
		r.Get("/", h.HandleListMaterials)
		r.Get("/{id}", h.HandleGetMaterial)
		r.Put("/{id}", h.HandleUpdateMaterial)
		r.Delete("/{id}", h.HandleDeleteMaterial)
	})
	r.Route("/rental-materials", func(r chi.Router) {
		r.Post("/", h.HandleCreateRental)
		r.Get("/", h.HandleListRentals)
		r.Get("/inactive", h.HandleListInactiveRentals)
		r.Get("/{id}", h.HandleGetRental)
		r.Put("/{id}", h.HandleUpdateRental)
		r.Patch("/{id}/deactivate", h.HandleDeactivateRental)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.HandleCreateCategory)
		r.Get("/", h.HandleListCategories)
	})
}

func (h *Handler) HandleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req MaterialInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	m, err := h.service.CreateMaterial(r.Context(), web.Actor(r.Context()), req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleListMaterials(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMaterials(r.Context(), web.Actor(r.Context()), web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	m, err := h.service.GetMaterial(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, m)
}

func (h *Handler) HandleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req MaterialInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	m, err := h.service.UpdateMaterial(r.Context(), web.Actor(r.Context()), id, req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, m)
}

func (h *Handler) HandleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	if err := h.service.DeleteMaterial(r.Context(), web.Actor(r.Context()), id); err != nil {
		web.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCreateRental(w http.ResponseWriter, r *http.Request) {
	var req RentalInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	rm, err := h.service.CreateRental(r.Context(), web.Actor(r.Context()), req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, rm)
}

func (h *Handler) HandleListRentals(w http.ResponseWriter, r *http.Request) {
	status := RentalStatus(r.URL.Query().Get("status"))
	list, err := h.service.ListRentals(r.Context(), web.Actor(r.Context()), status, web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListInactiveRentals(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRentals(r.Context(), web.Actor(r.Context()), RentalInactive, web.PageFrom(r))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGetRental(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	rm, err := h.service.GetRental(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, rm)
}

func (h *Handler) HandleUpdateRental(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	var req RentalInput
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	rm, err := h.service.UpdateRental(r.Context(), web.Actor(r.Context()), id, req)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, rm)
}

func (h *Handler) HandleDeactivateRental(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathUUID(r, "id")
	if err != nil {
		web.Error(w, r, err)
		return
	}
	rm, err := h.service.DeactivateRental(r.Context(), web.Actor(r.Context()), id)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, rm)
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, r, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), web.Actor(r.Context()), req.Name)
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCategories(r.Context(), web.Actor(r.Context()))
	if err != nil {
		web.Error(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, list)
}
