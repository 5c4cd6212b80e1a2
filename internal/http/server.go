package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler, feed *EventFeed, limiter *RateLimiter) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		r.Route("/gigs", func(r chi.Router) {
			r.Post("/", handler.CreateGig)
			r.Get("/{gigId}", handler.GetGig)
			r.Post("/{gigId}/close", handler.CloseGig)
			r.Post("/{gigId}/applications", handler.Apply)
			r.Post("/{gigId}/applications/{freelancerId}/accept", handler.Accept)
			r.Post("/{gigId}/applications/{freelancerId}/reject", handler.Reject)
		})

		r.Post("/payments/verify", handler.VerifyPayment)
	})

	if feed != nil {
		r.Get("/events", feed.ServeHTTP)
	}

	return &Server{Router: r}
}
