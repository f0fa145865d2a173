package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"pollpulse/internal/domain/room"
	"pollpulse/internal/domain/user"
	"pollpulse/internal/platform/apperr"
	jwtpkg "pollpulse/internal/platform/jwt"
	"pollpulse/internal/worker"
)

const guestIDHeader = "X-Guest-ID"

type Options struct {
	CORSOrigins []string
	// VotesPerMinute and VoteBurst size the per-IP limiter on the vote route.
	VotesPerMinute int
	VoteBurst      int
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
	// NewGuestID mints guest voter ids; identity.NewGuestID when nil.
	NewGuestID func() string
}

type Handler struct {
	userSvc    *user.Service
	roomSvc    *room.Service
	jwtMgr     *jwtpkg.Manager
	voteCh     chan<- worker.VoteEvent
	ready      func(ctx context.Context) error
	newGuestID func() string
}

func NewRouter(
	userSvc *user.Service,
	roomSvc *room.Service,
	jwtMgr *jwtpkg.Manager,
	voteCh chan<- worker.VoteEvent,
	opts Options,
) http.Handler {
	h := &Handler{
		userSvc:    userSvc,
		roomSvc:    roomSvc,
		jwtMgr:     jwtMgr,
		voteCh:     voteCh,
		ready:      opts.Ready,
		newGuestID: opts.NewGuestID,
	}
	if opts.VotesPerMinute <= 0 {
		opts.VotesPerMinute = 10
	}
	if opts.VoteBurst <= 0 {
		opts.VoteBurst = 3
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", guestIDHeader},
		ExposedHeaders:   []string{guestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.handleHealth)
	r.Get("/api/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(OptionalAuth(jwtMgr))

			r.Get("/rooms", h.handleListRooms)
			r.Get("/rooms/{id}", h.handleGetRoom)
			r.With(RateLimitVotes(rate.Every(time.Minute/time.Duration(opts.VotesPerMinute)), opts.VoteBurst)).
				Post("/rooms/{id}/vote", h.handleVote)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtMgr, userSvc))

			r.Get("/auth/me", h.handleMe)
			r.Post("/rooms", h.handleCreateRoom)
			r.Get("/rooms/mine", h.handleListMyRooms)
			r.Get("/rooms/{id}/results", h.handleResults)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		apperr.Unavailable("store_unavailable", "store not configured", nil).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.ready(ctx); err != nil {
		apperr.Unavailable("store_unavailable", "store not ready", err).Write(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
