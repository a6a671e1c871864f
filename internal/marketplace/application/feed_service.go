package application

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// PopularSectionSize is the number of deals shown in the "popular" section.
const PopularSectionSize = 5

const ratingLookupConcurrency = 8

type feedService struct {
	deals   DealRepository
	ratings RatingService
	logger  *zap.Logger
}

// NewFeedService builds the deal feed assembler.
func NewFeedService(deals DealRepository, ratings RatingService, logger *zap.Logger) FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedService{deals: deals, ratings: ratings, logger: logger.Named("feed")}
}

// Nearby orders active deals by distance from viewer. Without viewer coordinates the
// store order is kept.
func (s *feedService) Nearby(ctx context.Context, viewer *domain.Coordinates) ([]FeedItem, error) {
	items, err := s.activeItems(ctx)
	if err != nil {
		return nil, err
	}
	if viewer != nil {
		SortByDistance(items, *viewer)
	}
	return items, nil
}

// Popular orders active deals by candidature count and splits off the top section.
func (s *feedService) Popular(ctx context.Context) (*PopularFeed, error) {
	items, err := s.activeItems(ctx)
	if err != nil {
		return nil, err
	}
	SortByPopularity(items)
	popular, other := SplitPopular(items, PopularSectionSize)
	return &PopularFeed{Popular: popular, Other: other}, nil
}

func (s *feedService) MerchantDashboard(ctx context.Context, merchantID string) (*Dashboard, error) {
	var (
		deals  []domain.Deal
		rating domain.RatingAggregate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deals, err = s.deals.FindByMerchant(gctx, merchantID)
		return err
	})
	g.Go(func() error {
		var err error
		rating, err = s.ratings.Get(gctx, domain.RoleMerchant, merchantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		MerchantID:   merchantID,
		Deals:        make([]DashboardDeal, 0, len(deals)),
		TotalDeals:   len(deals),
		StatusCounts: make(map[domain.CandidatureStatus]int),
		Rating:       rating,
	}
	for _, deal := range deals {
		row := DashboardDeal{Deal: deal, StatusCounts: make(map[domain.CandidatureStatus]int)}
		for _, c := range deal.Candidatures {
			row.StatusCounts[c.Status]++
			dashboard.StatusCounts[c.Status]++
			if c.Status == domain.StatusApproval {
				row.AwaitingApproval++
			}
		}
		if deal.IsActive() {
			dashboard.ActiveDeals++
		}
		dashboard.TotalCandidatures += deal.CandidatureCount()
		dashboard.Deals = append(dashboard.Deals, row)
	}
	return dashboard, nil
}

// activeItems loads active deals and attaches each merchant's rating. A failed rating
// lookup degrades to an empty rating rather than failing the feed.
func (s *feedService) activeItems(ctx context.Context) ([]FeedItem, error) {
	deals, err := s.deals.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	merchants := make(map[string]struct{})
	for _, deal := range deals {
		merchants[deal.MerchantID] = struct{}{}
	}

	var mu sync.Mutex
	ratings := make(map[string]domain.RatingAggregate, len(merchants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ratingLookupConcurrency)
	for merchantID := range merchants {
		merchantID := merchantID
		g.Go(func() error {
			agg, err := s.ratings.Get(gctx, domain.RoleMerchant, merchantID)
			if err != nil {
				s.logger.Warn("merchant rating lookup failed", zap.String("merchantId", merchantID), zap.Error(err))
				return nil
			}
			mu.Lock()
			ratings[merchantID] = agg
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	items := make([]FeedItem, 0, len(deals))
	for _, deal := range deals {
		items = append(items, FeedItem{
			Deal:             deal,
			CandidatureCount: deal.CandidatureCount(),
			MerchantRating:   ratings[deal.MerchantID],
		})
	}
	return items, nil
}

// SortByDistance fills DistanceKm and stable-sorts ascending. Deals without coordinates
// keep their relative order after every located deal.
func SortByDistance(items []FeedItem, viewer domain.Coordinates) {
	for i := range items {
		items[i].DistanceKm = nil
		if coords := items[i].Deal.LocationCoords; coords != nil {
			d := domain.HaversineKm(viewer, *coords)
			items[i].DistanceKm = &d
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].DistanceKm, items[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}

// SortByPopularity stable-sorts descending by candidature count.
func SortByPopularity(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CandidatureCount > items[j].CandidatureCount
	})
}

// SplitPopular returns the first n items and the remainder.
func SplitPopular(items []FeedItem, n int) ([]FeedItem, []FeedItem) {
	if n > len(items) {
		n = len(items)
	}
	popular := append([]FeedItem{}, items[:n]...)
	other := append([]FeedItem{}, items[n:]...)
	return popular, other
}
