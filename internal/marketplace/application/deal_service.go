package application

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

const (
	maxDealTitleRunes       = 120
	maxDealDescriptionRunes = 2000
)

type dealService struct {
	repo   DealRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDealService builds the merchant deal service.
func NewDealService(repo DealRepository, logger *zap.Logger) DealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dealService{
		repo:   repo,
		logger: logger.Named("deal"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *dealService) Create(ctx context.Context, cmd CreateDealCommand) (*domain.Deal, error) {
	deal, err := buildDealFromCommand(cmd, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, deal); err != nil {
		return nil, err
	}
	s.logger.Info("deal created", zap.String("dealId", deal.ID), zap.String("merchantId", deal.MerchantID))
	return deal, nil
}

// Close stops new applications. Existing candidatures keep their lifecycle.
func (s *dealService) Close(ctx context.Context, dealID, merchantID string) error {
	deal, err := s.repo.FindByID(ctx, dealID)
	if err != nil {
		return err
	}
	if deal.MerchantID != merchantID {
		return domain.ErrForbidden
	}
	if deal.Status == domain.DealStatusClosed {
		return nil
	}
	return s.repo.UpdateStatus(ctx, deal.ID, domain.DealStatusClosed)
}

func (s *dealService) Detail(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.repo.FindByID(ctx, dealID)
}

func (s *dealService) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Deal, error) {
	return s.repo.FindByMerchant(ctx, merchantID)
}

func buildDealFromCommand(cmd CreateDealCommand, now time.Time) (*domain.Deal, error) {
	merchantID := strings.TrimSpace(cmd.MerchantID)
	if merchantID == "" {
		return nil, domain.NewValidationError("merchantId", "commerçant requis")
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "le titre est obligatoire")
	}
	if len([]rune(title)) > maxDealTitleRunes {
		return nil, domain.NewValidationError("title", "titre trop long")
	}
	description := strings.TrimSpace(cmd.Description)
	if len([]rune(description)) > maxDealDescriptionRunes {
		return nil, domain.NewValidationError("description", "description trop longue")
	}
	if cmd.LocationCoords != nil && !cmd.LocationCoords.Valid() {
		return nil, domain.NewValidationError("locationCoords", "coordonnées invalides")
	}
	if cmd.ValidUntil != nil && cmd.ValidUntil.Before(now) {
		return nil, domain.NewValidationError("validUntil", "la date de validité est déjà passée")
	}

	var coords *domain.Coordinates
	if cmd.LocationCoords != nil {
		c := *cmd.LocationCoords
		coords = &c
	}

	return &domain.Deal{
		Title:          title,
		Description:    description,
		ImageURL:       strings.TrimSpace(cmd.ImageURL),
		MerchantID:     merchantID,
		Status:         domain.DealStatusActive,
		Location:       strings.TrimSpace(cmd.Location),
		LocationCoords: coords,
		LocationName:   strings.TrimSpace(cmd.LocationName),
		Interests:      cleanList(cmd.Interests),
		TypeOfContent:  cleanList(cmd.TypeOfContent),
		ValidUntil:     cmd.ValidUntil,
		Conditions:     strings.TrimSpace(cmd.Conditions),
		Candidatures:   []domain.Candidature{},
		CreatedAt:      now,
	}, nil
}

func cleanList(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
