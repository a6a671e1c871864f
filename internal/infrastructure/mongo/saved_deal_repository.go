package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
)

// SavedDealRepository persists saveDeal/{uid} as a set of deal ids.
type SavedDealRepository struct {
	collection *mongo.Collection
}

var _ application.SavedDealRepository = (*SavedDealRepository)(nil)

func NewSavedDealRepository(db *mongo.Database, collectionName string) *SavedDealRepository {
	return &SavedDealRepository{collection: db.Collection(collectionName)}
}

// Toggle removes dealID when present, otherwise adds it. Returns true if it is now saved.
func (r *SavedDealRepository) Toggle(ctx context.Context, influencerID, dealID string) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": influencerID, "deals": dealID},
		bson.M{"$pull": bson.M{"deals": dealID}},
	)
	if err != nil {
		return false, err
	}
	if result.ModifiedCount > 0 {
		return false, nil
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": influencerID},
		bson.M{"$addToSet": bson.M{"deals": dealID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SavedDealRepository) List(ctx context.Context, influencerID string) ([]string, error) {
	var doc SavedDealsDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": influencerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, err
	}
	return nonNilStrings(doc.Deals), nil
}
