package application

import (
	"context"
	"strings"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

type savedDealService struct {
	repo  SavedDealRepository
	deals DealRepository
}

// NewSavedDealService builds the saved-deal toggle service.
func NewSavedDealService(repo SavedDealRepository, deals DealRepository) SavedDealService {
	return &savedDealService{repo: repo, deals: deals}
}

// Toggle flips dealID in the influencer's set and returns whether it is now saved.
// Only existing deals can be saved; removing a vanished deal is always allowed.
func (s *savedDealService) Toggle(ctx context.Context, influencerID, dealID string) (bool, error) {
	influencerID = strings.TrimSpace(influencerID)
	dealID = strings.TrimSpace(dealID)
	if influencerID == "" || dealID == "" {
		return false, domain.NewValidationError("dealId", "deal requis")
	}

	saved, err := s.repo.List(ctx, influencerID)
	if err != nil {
		return false, err
	}
	if !containsString(saved, dealID) {
		if _, err := s.deals.FindByID(ctx, dealID); err != nil {
			return false, err
		}
	}
	return s.repo.Toggle(ctx, influencerID, dealID)
}

func (s *savedDealService) List(ctx context.Context, influencerID string) ([]string, error) {
	return s.repo.List(ctx, influencerID)
}

func containsString(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}
