package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Post("/{id}/arm", s.handleArmSession)
			r.Post("/{id}/react", s.handleReact)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", s.handleLeaderboard)
			r.Get("/me", s.handleMyRank)
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Post("/", s.handleCreateChallenge)
			r.Get("/{code}", s.handleGetChallenge)
			r.Post("/{code}/accept", s.handleAcceptChallenge)
			r.Post("/{code}/play", s.handlePlayChallenge)
			r.Get("/{code}/live", s.handleChallengeSocket)
		})

		r.Get("/players/me", s.handleMe)
		r.Get("/players/{id}/stats", s.handlePlayerStats)
	})

	r.Get("/events", s.handleEvents)
	r.Get("/health", s.handleHealth)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	})
}
