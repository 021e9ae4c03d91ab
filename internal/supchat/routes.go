package supchat

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/snapshot", h.Snapshot)
	r.Get("/people/{id}/chats", h.ChatsForPerson)

	r.Post("/chats", h.OpenChat)
	r.Post("/chats/start", h.StartChats)
	r.Post("/chats/{id}/escalate", h.Escalate)
	r.Post("/messages", h.SendMessage)
	r.Post("/agents/{id}/close", h.CloseChat)
	r.Post("/clients/{id}/csat", h.SetCsat)
	r.Post("/simulation/step", h.Step)
}
