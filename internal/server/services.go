package server

import (
	"go.uber.org/zap"

	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
)

// Repositories は永続化ポートの束。Mongo とメモリ実装のどちらでも組み立てられる。
type Repositories struct {
	Deals         app.DealRepository
	Notifications app.NotificationRepository
	Chats         app.ChatRepository
	SavedDeals    app.SavedDealRepository
	Ratings       app.RatingRepository
}

// NewServices wires every application service over repos. cache may be nil.
func NewServices(repos Repositories, cache app.RatingCache, logger *zap.Logger) Services {
	notifications := app.NewNotificationService(repos.Notifications, logger)
	chats := app.NewChatService(repos.Chats, logger)
	ratings := app.NewRatingService(repos.Deals, repos.Ratings, cache, logger)

	return Services{
		Deals: app.NewDealService(repos.Deals, logger),
		Candidatures: app.NewCandidatureService(app.CandidatureServiceConfig{
			Deals:         repos.Deals,
			Notifications: notifications,
			Chats:         chats,
			Ratings:       ratings,
			Logger:        logger,
		}),
		Notifications: notifications,
		Chats:         chats,
		Ratings:       ratings,
		Feeds:         app.NewFeedService(repos.Deals, ratings, logger),
		SavedDeals:    app.NewSavedDealService(repos.SavedDeals, repos.Deals),
	}
}
