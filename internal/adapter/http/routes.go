package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the producer API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Get("/rooms", h.ListRooms)
		r.Post("/rooms/{roomID}/events", h.PublishEvent)
		r.Delete("/rooms/{roomID}/snapshot", h.DropSnapshot)

		r.Post("/quizzes", h.PublishQuiz)
	})
}
