package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names the collections the repositories are bound to.
type Collections struct {
	Deals         string
	Notifications string
	Chats         string
	UserChats     string
	SavedDeals    string
	Ratings       string
}

// EnsureIndexes は起動時に必要なインデックスを作成する。既存のものはそのまま。
func EnsureIndexes(ctx context.Context, db *mongo.Database, c Collections) error {
	specs := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{c.Deals, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "merchantId", Value: 1}}},
			{Keys: bson.D{{Key: "candidatures.influenceurId", Value: 1}}},
		}},
		{c.Notifications, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}},
		}},
		{c.Chats, []mongo.IndexModel{
			{Keys: bson.D{{Key: "participants", Value: 1}}},
		}},
	}

	for _, spec := range specs {
		if spec.collection == "" {
			continue
		}
		_, err := db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models, options.CreateIndexes())
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.collection, err)
		}
	}
	return nil
}

// Repositories groups every Mongo-backed repository over one database.
type Repositories struct {
	Deals         *DealRepository
	Notifications *NotificationRepository
	Chats         *ChatRepository
	SavedDeals    *SavedDealRepository
	Ratings       *RatingRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *mongo.Database, c Collections) Repositories {
	return Repositories{
		Deals:         NewDealRepository(db, c.Deals),
		Notifications: NewNotificationRepository(db, c.Notifications),
		Chats:         NewChatRepository(db, c.Chats, c.UserChats),
		SavedDeals:    NewSavedDealRepository(db, c.SavedDeals),
		Ratings:       NewRatingRepository(db, c.Ratings),
	}
}
