package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// RatingRepository stores the per-user rating aggregate so reads never scan deals.
// Each role of a user has its own document, keyed by domain.RatingKey.
type RatingRepository struct {
	collection *mongo.Collection
}

var _ application.RatingRepository = (*RatingRepository)(nil)

func NewRatingRepository(db *mongo.Database, collectionName string) *RatingRepository {
	return &RatingRepository{collection: db.Collection(collectionName)}
}

// Increment は sum/count を原子的に加算し、更新後の値を返す。ドキュメントが無ければ作成する。
func (r *RatingRepository) Increment(ctx context.Context, role domain.Role, userID string, rating int) (domain.RatingAggregate, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var doc RatingDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": domain.RatingKey(role, userID)},
		bson.M{
			"$inc":         bson.M{"sum": rating, "count": 1},
			"$set":         bson.M{"updatedAt": time.Now().UTC()},
			"$setOnInsert": bson.M{"userId": userID, "role": string(role)},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	return domain.RatingAggregate{UserID: userID, Role: role, Sum: doc.Sum, Count: doc.Count}, nil
}

// Find returns a zero aggregate for users that were never reviewed in role.
func (r *RatingRepository) Find(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, error) {
	var doc RatingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": domain.RatingKey(role, userID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.RatingAggregate{UserID: userID, Role: role}, nil
		}
		return domain.RatingAggregate{}, err
	}
	return domain.RatingAggregate{UserID: userID, Role: role, Sum: doc.Sum, Count: doc.Count}, nil
}

// ReplaceAll overwrites every aggregate with the given set and drops the rest.
func (r *RatingRepository) ReplaceAll(ctx context.Context, aggregates []domain.RatingAggregate) error {
	now := time.Now().UTC()
	ids := make([]string, 0, len(aggregates))
	models := make([]mongo.WriteModel, 0, len(aggregates))
	for _, agg := range aggregates {
		ids = append(ids, agg.Key())
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": agg.Key()}).
			SetReplacement(RatingDocument{
				ID:        agg.Key(),
				UserID:    agg.UserID,
				Role:      string(agg.Role),
				Sum:       agg.Sum,
				Count:     agg.Count,
				UpdatedAt: now,
			}).
			SetUpsert(true))
	}
	if len(models) > 0 {
		if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	return err
}
