package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sawatantra/api/backend/internal/setup"
	mw "github.com/sawatantra/api/shared/middleware"
	"github.com/sawatantra/api/shared/middleware/metrics"
	rl "github.com/sawatantra/api/shared/middleware/ratelimiter"
)

// New creates and configures a chi router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit request for all endpoints combined in that group
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeadersWithCSP(deps.Config.Public.SecureCookies, mw.APIContentSecurityPolicy))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Rate-limited email sending endpoint
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.New(1.0/10, 1, 1*time.Hour), mw.GetEmailFromBody))
				r.Use(mw.RateLimit(rl.New(1.0/10, 1, 1*time.Hour), mw.GetIP))
				r.Use(mw.GlobalRateLimit(rl.Rps100()))
				r.Post("/register", h.Register)
			})

			// Confirmation code verification (stricter limits to prevent brute force)
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.New(5.0/600.0, 5, 1*time.Hour), mw.GetEmailFromBody)) // 5 attempts per 10 minutes by email
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				r.Use(mw.GlobalRateLimit(rl.Rps100()))
				r.Post("/confirm", h.ConfirmEmail)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				r.Post("/login", h.Login)
			})

			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMw.NeedAuth())
				r.Use(mw.RateLimit(rl.Rps10(), mw.GetUserEmailFromContext))
				r.Get("/", h.ListUsers)
				r.Get("/search", h.SearchUsers)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				r.Get("/query", h.QueryKnowledge)
			})
			r.Group(func(r chi.Router) {
				r.Use(authMw.NeedAuth())
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetUserEmailFromContext))
				r.Post("/save", h.SaveKnowledge)
			})
		})

		r.Route("/planning-poker/board", func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Use(mw.RateLimit(rl.Rps100(), mw.GetUserEmailFromContext)) // 100 RPS per user

			r.With(mw.RateLimit(rl.OnceInSecond(), mw.GetUserEmailFromContext)).Post("/", h.CreateBoard)
			r.Route("/{boardId}", func(r chi.Router) {
				r.Get("/", h.GetBoard)
				r.Get("/participants", h.GetParticipants)
				r.Post("/participant", h.AddParticipant)
				r.Delete("/participant/{email}", h.DeleteParticipant)
				r.Get("/stories", h.GetStories)
				r.Post("/story", h.AddStory)
				r.Post("/story/{storyId}/vote", h.SubmitVote)
				r.Post("/story/{storyId}/reveal", h.RevealStoryVotes)
				r.Post("/story/{storyId}/reset", h.ResetStoryVotes)
			})
		})
	})

	return r
}
