package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// NotificationRepository persists per-user notification feeds in a single collection.
type NotificationRepository struct {
	collection *mongo.Collection
}

var _ application.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *mongo.Database, collectionName string) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection(collectionName)}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	doc := NotificationDocument{
		ID:            n.ID,
		UserID:        n.RecipientID,
		Message:       n.Message,
		Type:          string(n.Type),
		FromUserID:    n.FromUserID,
		RelatedDealID: n.RelatedDealID,
		TargetRoute:   n.TargetRoute,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

// List returns the newest notifications first.
func (r *NotificationRepository) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	filter := bson.M{"userId": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make([]domain.Notification, 0)
	for cursor.Next(ctx) {
		var doc NotificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, mapNotificationDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRead は受信者本人の通知だけを既読にする。他人の ID は NotFound 扱い。
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": notificationID, "userId": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": recipientID, "read": false})
}
