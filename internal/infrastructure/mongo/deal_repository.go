package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// DealRepository implements application.DealRepository using MongoDB.
// Candidature writes target a single array element through array filters so a
// writer never replaces the whole candidatures array.
type DealRepository struct {
	collection *mongo.Collection
}

var _ application.DealRepository = (*DealRepository)(nil)

// NewDealRepository creates a new Mongo-backed deal repository.
func NewDealRepository(db *mongo.Database, collectionName string) *DealRepository {
	return &DealRepository{collection: db.Collection(collectionName)}
}

// FindByID returns a single deal by its identifier.
func (r *DealRepository) FindByID(ctx context.Context, id string) (*domain.Deal, error) {
	objectID, err := dealObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc DealDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	deal := mapDealDocument(doc)
	return &deal, nil
}

func (r *DealRepository) FindActive(ctx context.Context) ([]domain.Deal, error) {
	return r.find(ctx, bson.M{"status": string(domain.DealStatusActive)})
}

func (r *DealRepository) FindByMerchant(ctx context.Context, merchantID string) ([]domain.Deal, error) {
	return r.find(ctx, bson.M{"merchantId": merchantID})
}

func (r *DealRepository) FindAll(ctx context.Context) ([]domain.Deal, error) {
	return r.find(ctx, bson.M{})
}

// find は作成順 (createdAt 昇順) で deal を返す。フィードの安定ソートはこの順序を前提にする。
func (r *DealRepository) find(ctx context.Context, filter bson.M) ([]domain.Deal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	deals := make([]domain.Deal, 0)
	for cursor.Next(ctx) {
		var doc DealDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		deals = append(deals, mapDealDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return deals, nil
}

// Create inserts the deal and assigns its identifier.
func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	doc := toDealDocument(deal)
	doc.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	deal.ID = doc.ID.Hex()
	return nil
}

func (r *DealRepository) UpdateStatus(ctx context.Context, dealID string, status domain.DealStatus) error {
	objectID, err := dealObjectID(dealID)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}
	return nil
}

// AppendCandidature pushes c only while the deal is active and has no candidature from the same influencer.
func (r *DealRepository) AppendCandidature(ctx context.Context, dealID string, c domain.Candidature) error {
	objectID, err := dealObjectID(dealID)
	if err != nil {
		return err
	}
	filter := bson.M{
		"_id":                        objectID,
		"status":                     string(domain.DealStatusActive),
		"candidatures.influenceurId": bson.M{"$ne": c.InfluencerID},
	}
	update := bson.M{"$push": bson.M{"candidatures": toCandidatureDocument(c)}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	deal, err := r.FindByID(ctx, dealID)
	if err != nil {
		return err
	}
	if !deal.IsActive() {
		return domain.ErrDealNotActive
	}
	return domain.ErrDuplicateApplication
}

// UpdateCandidature sets the new status only when the element still holds change.From.
func (r *DealRepository) UpdateCandidature(ctx context.Context, dealID string, change application.CandidatureChange) error {
	objectID, err := dealObjectID(dealID)
	if err != nil {
		return err
	}
	filter := bson.M{
		"_id": objectID,
		"candidatures": bson.M{"$elemMatch": bson.M{
			"influenceurId": change.InfluencerID,
			"status":        string(change.From),
		}},
	}
	set := bson.M{
		"candidatures.$[c].status":    string(change.To),
		"candidatures.$[c].updatedAt": change.UpdatedAt,
	}
	if change.Proofs != nil {
		set["candidatures.$[c].proofs"] = toProofDocuments(change.Proofs)
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"c.influenceurId": change.InfluencerID,
			"c.status":        string(change.From),
		}},
	})
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set}, opts)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	return r.classifyMiss(ctx, dealID, change.InfluencerID, func(c *domain.Candidature) error {
		return fmt.Errorf("candidature %s is %s, expected %s: %w", change.InfluencerID, c.Status, change.From, domain.ErrConflict)
	})
}

// RemoveCandidature pulls the element only when it still holds expected.
func (r *DealRepository) RemoveCandidature(ctx context.Context, dealID, influencerID string, expected domain.CandidatureStatus) error {
	objectID, err := dealObjectID(dealID)
	if err != nil {
		return err
	}
	match := bson.M{"influenceurId": influencerID, "status": string(expected)}
	filter := bson.M{
		"_id":          objectID,
		"candidatures": bson.M{"$elemMatch": match},
	}
	update := bson.M{"$pull": bson.M{"candidatures": match}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	return r.classifyMiss(ctx, dealID, influencerID, func(c *domain.Candidature) error {
		return fmt.Errorf("candidature %s is %s, expected %s: %w", influencerID, c.Status, expected, domain.ErrConflict)
	})
}

// AttachReview writes the review sub-field once, and only on a completed candidature.
func (r *DealRepository) AttachReview(ctx context.Context, dealID, influencerID string, dir domain.ReviewDirection, review domain.Review) error {
	if dir != domain.ReviewOfMerchant && dir != domain.ReviewOfInfluencer {
		return domain.NewValidationError("review", "direction inconnue")
	}
	objectID, err := dealObjectID(dealID)
	if err != nil {
		return err
	}
	field := string(dir)
	filter := bson.M{
		"_id": objectID,
		"candidatures": bson.M{"$elemMatch": bson.M{
			"influenceurId": influencerID,
			"status":        string(domain.StatusCompleted),
			field:           bson.M{"$exists": false},
		}},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"c.influenceurId": influencerID,
			"c.status":        string(domain.StatusCompleted),
			"c." + field:      bson.M{"$exists": false},
		}},
	})
	update := bson.M{"$set": bson.M{"candidatures.$[c]." + field: toReviewDocument(&review)}}
	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	return r.classifyMiss(ctx, dealID, influencerID, func(c *domain.Candidature) error {
		if c.ReviewIn(dir) != nil {
			return domain.ErrReviewExists
		}
		return fmt.Errorf("candidature %s is %s: %w", influencerID, c.Status, domain.ErrConflict)
	})
}

// classifyMiss は条件付き更新が 0 件だった理由を再読込で判定する。
func (r *DealRepository) classifyMiss(ctx context.Context, dealID, influencerID string, conflict func(*domain.Candidature) error) error {
	deal, err := r.FindByID(ctx, dealID)
	if err != nil {
		return err
	}
	_, c := deal.FindCandidature(influencerID)
	if c == nil {
		return fmt.Errorf("candidature %s: %w", influencerID, domain.ErrNotFound)
	}
	return conflict(c)
}

// dealObjectID maps malformed identifiers to ErrNotFound; no such deal can exist.
func dealObjectID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
	}
	return objectID, nil
}
