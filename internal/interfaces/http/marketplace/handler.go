package marketplace

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
)

const requestTimeout = 5 * time.Second

// Handler wires marketplace HTTP endpoints to application services.
type Handler struct {
	logger        *zap.Logger
	deals         app.DealService
	candidatures  app.CandidatureService
	notifications app.NotificationService
	chats         app.ChatService
	ratings       app.RatingService
	feeds         app.FeedService
	saved         app.SavedDealService
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger        *zap.Logger
	Deals         app.DealService
	Candidatures  app.CandidatureService
	Notifications app.NotificationService
	Chats         app.ChatService
	Ratings       app.RatingService
	Feeds         app.FeedService
	SavedDeals    app.SavedDealService
}

// NewHandler constructs the marketplace handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:        logger.Named("http"),
		deals:         cfg.Deals,
		candidatures:  cfg.Candidatures,
		notifications: cfg.Notifications,
		chats:         cfg.Chats,
		ratings:       cfg.Ratings,
		feeds:         cfg.Feeds,
		saved:         cfg.SavedDeals,
	}
}

// Register mounts all marketplace routes onto the router. Feeds, deal detail and
// ratings are public; everything else requires a bearer token.
func (h *Handler) Register(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/deals/feed/nearby", h.nearbyFeedHandler())
	r.Get("/deals/feed/popular", h.popularFeedHandler())
	r.Get("/deals/{id}", h.dealDetailHandler())
	r.Get("/users/{id}/rating", h.ratingHandler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/deals", h.dealCreateHandler())
		r.Post("/deals/{id}/close", h.dealCloseHandler())
		r.Get("/merchants/me/dashboard", h.dashboardHandler())

		r.Post("/deals/{id}/candidatures", h.applyHandler())
		r.Route("/deals/{id}/candidatures/{influencerId}", func(r chi.Router) {
			r.Post("/accept", h.transitionHandler(h.candidatures.Accept))
			r.Post("/refuse", h.transitionHandler(h.candidatures.Refuse))
			r.Post("/cancel", h.transitionHandler(h.candidatures.Cancel))
			r.Post("/approve", h.transitionHandler(h.candidatures.Approve))
			r.Post("/retract", h.transitionHandler(h.candidatures.Retract))
			r.Put("/proofs", h.proofsHandler(h.candidatures.SyncProofs))
			r.Post("/done", h.proofsHandler(h.candidatures.MarkDone))
			r.Post("/reviews", h.reviewHandler())
		})

		r.Get("/notifications", h.notificationListHandler())
		r.Post("/notifications/read-all", h.notificationReadAllHandler())
		r.Post("/notifications/{id}/read", h.notificationReadHandler())

		r.Get("/chats", h.chatListHandler())
		r.Post("/chats/messages", h.chatSendHandler())
		r.Get("/chats/{threadId}", h.chatThreadHandler())
		r.Post("/chats/{threadId}/read", h.chatReadHandler())

		r.Get("/saved-deals", h.savedListHandler())
		r.Post("/saved-deals/{dealId}/toggle", h.savedToggleHandler())
	})
}
