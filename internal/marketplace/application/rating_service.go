package application

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

type ratingService struct {
	deals  DealRepository
	repo   RatingRepository
	cache  RatingCache
	logger *zap.Logger
}

// NewRatingService builds the aggregator. cache may be nil.
func NewRatingService(deals DealRepository, repo RatingRepository, cache RatingCache, logger *zap.Logger) RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ratingService{
		deals:  deals,
		repo:   repo,
		cache:  cache,
		logger: logger.Named("rating"),
	}
}

// Record folds a freshly written review into the stored aggregate and caches the
// post-write value.
func (s *ratingService) Record(ctx context.Context, role domain.Role, userID string, rating int) error {
	if userID == "" {
		return domain.NewValidationError("userId", "identifiant requis")
	}
	if !domain.ValidRole(role) {
		return domain.NewValidationError("role", "rôle inconnu")
	}
	if rating < 1 || rating > domain.MaxCategoryScore {
		return domain.NewValidationError("rating", "la note doit être comprise entre 1 et 5")
	}
	agg, err := s.repo.Increment(ctx, role, userID, rating)
	if err != nil {
		return fmt.Errorf("increment %s rating of %s: %w", role, userID, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, agg); err != nil {
			s.logger.Warn("rating cache write failed", zap.String("userId", userID), zap.String("role", string(role)), zap.Error(err))
			s.invalidate(ctx, role, userID)
		}
	}
	return nil
}

// Get reads the aggregate in O(1), through the cache when one is configured.
// The cache fill never overwrites an entry that counts more reviews, so a Record
// racing with this read is not hidden behind the older value.
func (s *ratingService) Get(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, error) {
	if !domain.ValidRole(role) {
		return domain.RatingAggregate{}, domain.NewValidationError("role", "rôle inconnu")
	}
	if s.cache != nil {
		agg, ok, err := s.cache.Get(ctx, role, userID)
		if err != nil {
			s.logger.Warn("rating cache read failed", zap.String("userId", userID), zap.Error(err))
		} else if ok {
			return agg, nil
		}
	}

	agg, err := s.repo.Find(ctx, role, userID)
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	agg.UserID = userID
	agg.Role = role

	if s.cache != nil {
		if err := s.cache.Set(ctx, agg); err != nil {
			s.logger.Warn("rating cache write failed", zap.String("userId", userID), zap.Error(err))
		}
	}
	return agg, nil
}

// Recompute scans every review embedded in every deal. Merchant-authored reviews count
// toward the influencer's influencer aggregate, influencer-authored reviews toward the
// merchant's merchant aggregate. The result is keyed by domain.RatingKey.
func (s *ratingService) Recompute(ctx context.Context) (map[string]domain.RatingAggregate, error) {
	deals, err := s.deals.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateRatings(deals), nil
}

// Rebuild replaces the stored aggregates with a full recomputation.
func (s *ratingService) Rebuild(ctx context.Context) (int, error) {
	aggregates, err := s.Recompute(ctx)
	if err != nil {
		return 0, err
	}

	list := make([]domain.RatingAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		list = append(list, agg)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key() < list[j].Key() })

	if err := s.repo.ReplaceAll(ctx, list); err != nil {
		return 0, fmt.Errorf("replace rating aggregates: %w", err)
	}
	for _, agg := range list {
		s.invalidate(ctx, agg.Role, agg.UserID)
	}
	s.logger.Info("rating aggregates rebuilt", zap.Int("users", len(list)))
	return len(list), nil
}

func (s *ratingService) invalidate(ctx context.Context, role domain.Role, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, role, userID); err != nil {
		s.logger.Warn("rating cache invalidation failed", zap.String("userId", userID), zap.Error(err))
	}
}

// AggregateRatings folds all reviews of deals into per-user, per-role aggregates.
func AggregateRatings(deals []domain.Deal) map[string]domain.RatingAggregate {
	result := make(map[string]domain.RatingAggregate)
	add := func(role domain.Role, userID string, review *domain.Review) {
		if review == nil || userID == "" {
			return
		}
		key := domain.RatingKey(role, userID)
		agg := result[key]
		agg.UserID = userID
		agg.Role = role
		agg.Add(review.Rating)
		result[key] = agg
	}
	for _, deal := range deals {
		for _, c := range deal.Candidatures {
			add(domain.RoleInfluencer, c.InfluencerID, c.MerchantReview)
			add(domain.RoleMerchant, deal.MerchantID, c.InfluencerReview)
		}
	}
	return result
}
