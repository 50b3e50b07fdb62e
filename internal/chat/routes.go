package chat

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/sessions", h.StartSession)
	r.Post("/sessions/{id}/messages", h.SendMessage)
	r.Delete("/sessions/{id}", h.EndSession)
	r.Get("/sessions/{id}/events", h.ListEvents)
}
