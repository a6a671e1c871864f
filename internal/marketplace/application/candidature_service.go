package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// CandidatureServiceConfig defines dependencies of the lifecycle service.
type CandidatureServiceConfig struct {
	Deals         DealRepository
	Notifications NotificationService
	Chats         ChatService
	Ratings       RatingService
	Logger        *zap.Logger
	Now           func() time.Time
}

type candidatureService struct {
	deals         DealRepository
	notifications NotificationService
	chats         ChatService
	ratings       RatingService
	logger        *zap.Logger
	now           func() time.Time
}

// NewCandidatureService builds the lifecycle service. Notifications, chat bootstrap and
// rating updates run after the deal write succeeds and never fail the transition.
func NewCandidatureService(cfg CandidatureServiceConfig) CandidatureService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &candidatureService{
		deals:         cfg.Deals,
		notifications: cfg.Notifications,
		chats:         cfg.Chats,
		ratings:       cfg.Ratings,
		logger:        logger.Named("candidature"),
		now:           now,
	}
}

func (s *candidatureService) Apply(ctx context.Context, cmd ApplyCommand) (*domain.Candidature, error) {
	deal, err := s.deals.FindByID(ctx, cmd.DealID)
	if err != nil {
		return nil, err
	}

	candidature, err := deal.NewCandidature(strings.TrimSpace(cmd.Influencer.ID), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.deals.AppendCandidature(ctx, deal.ID, candidature); err != nil {
		return nil, err
	}
	s.logger.Info("candidature submitted", zap.String("dealId", deal.ID), zap.String("influencerId", candidature.InfluencerID))

	s.notify(ctx, NewNotification{
		RecipientID:   deal.MerchantID,
		Message:       fmt.Sprintf("%s a postulé à votre deal « %s ».", displayName(cmd.Influencer.Name, "Un influenceur"), deal.Title),
		Type:          domain.NotificationApplication,
		SenderID:      candidature.InfluencerID,
		RelatedDealID: deal.ID,
		TargetRoute:   candidaturesRoute(deal.ID),
	})

	opening := strings.TrimSpace(cmd.Message)
	if opening == "" {
		opening = fmt.Sprintf("Bonjour, je viens de postuler à votre deal « %s ».", deal.Title)
	}
	if err := s.chats.Bootstrap(ctx, BootstrapCommand{
		InitiatorID:   candidature.InfluencerID,
		CounterpartID: deal.MerchantID,
		Text:          opening,
		Key:           openingMessageKey(deal.ID, candidature.InfluencerID),
	}); err != nil {
		s.logger.Warn("chat bootstrap failed", zap.String("dealId", deal.ID), zap.String("influencerId", candidature.InfluencerID), zap.Error(err))
	}

	return &candidature, nil
}

func (s *candidatureService) Accept(ctx context.Context, cmd TransitionCommand) error {
	deal, _, err := s.fire(ctx, cmd, domain.EventAccept, nil)
	if err != nil {
		return err
	}
	s.notify(ctx, NewNotification{
		RecipientID:   cmd.InfluencerID,
		Message:       fmt.Sprintf("Votre candidature pour « %s » a été acceptée.", deal.Title),
		Type:          domain.NotificationAccepted,
		SenderID:      deal.MerchantID,
		RelatedDealID: deal.ID,
		TargetRoute:   dealRoute(deal.ID),
	})
	return nil
}

func (s *candidatureService) Refuse(ctx context.Context, cmd TransitionCommand) error {
	deal, _, err := s.fire(ctx, cmd, domain.EventRefuse, nil)
	if err != nil {
		return err
	}
	s.notify(ctx, NewNotification{
		RecipientID:   cmd.InfluencerID,
		Message:       fmt.Sprintf("Votre candidature pour « %s » a été refusée.", deal.Title),
		Type:          domain.NotificationRefused,
		SenderID:      deal.MerchantID,
		RelatedDealID: deal.ID,
		TargetRoute:   dealRoute(deal.ID),
	})
	return nil
}

func (s *candidatureService) Cancel(ctx context.Context, cmd TransitionCommand) error {
	deal, outcome, err := s.fire(ctx, cmd, domain.EventCancel, nil)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Votre candidature pour « %s » a été annulée par le commerçant.", deal.Title)
	if outcome.From == domain.StatusAccepted {
		message = fmt.Sprintf("Le commerçant a annulé votre collaboration « %s ».", deal.Title)
	}
	s.notify(ctx, NewNotification{
		RecipientID:   cmd.InfluencerID,
		Message:       message,
		Type:          domain.NotificationCancelled,
		SenderID:      deal.MerchantID,
		RelatedDealID: deal.ID,
		TargetRoute:   dealRoute(deal.ID),
	})
	return nil
}

// SyncProofs saves the proof list while the collaboration is in progress.
func (s *candidatureService) SyncProofs(ctx context.Context, cmd ProofsCommand) error {
	if err := domain.ValidateProofDrafts(cmd.Proofs); err != nil {
		return err
	}
	deal, err := s.deals.FindByID(ctx, cmd.DealID)
	if err != nil {
		return err
	}
	_, c := deal.FindCandidature(cmd.InfluencerID)
	if c == nil {
		return fmt.Errorf("candidature %s: %w", cmd.InfluencerID, domain.ErrNotFound)
	}
	if cmd.ActorID != c.InfluencerID {
		return domain.ErrForbidden
	}
	if c.Status != domain.StatusAccepted {
		return domain.NewValidationError("status", "les preuves ne peuvent être modifiées qu'une fois la candidature acceptée")
	}
	return s.deals.UpdateCandidature(ctx, deal.ID, CandidatureChange{
		InfluencerID: c.InfluencerID,
		From:         domain.StatusAccepted,
		To:           domain.StatusAccepted,
		Proofs:       copyProofs(cmd.Proofs),
		UpdatedAt:    s.now(),
	})
}

func (s *candidatureService) MarkDone(ctx context.Context, cmd ProofsCommand) error {
	if err := domain.ValidateProofs(cmd.Proofs); err != nil {
		return err
	}
	deal, _, err := s.fire(ctx, TransitionCommand{
		DealID:       cmd.DealID,
		InfluencerID: cmd.InfluencerID,
		ActorID:      cmd.ActorID,
	}, domain.EventMarkDone, copyProofs(cmd.Proofs))
	if err != nil {
		return err
	}
	s.notify(ctx, NewNotification{
		RecipientID:   deal.MerchantID,
		Message:       fmt.Sprintf("Un influenceur a terminé la collaboration « %s » et attend votre validation.", deal.Title),
		Type:          domain.NotificationApproval,
		SenderID:      cmd.InfluencerID,
		RelatedDealID: deal.ID,
		TargetRoute:   candidaturesRoute(deal.ID),
	})
	return nil
}

func (s *candidatureService) Retract(ctx context.Context, cmd TransitionCommand) error {
	_, _, err := s.fire(ctx, cmd, domain.EventRetract, nil)
	return err
}

func (s *candidatureService) Approve(ctx context.Context, cmd TransitionCommand) error {
	deal, _, err := s.fire(ctx, cmd, domain.EventApprove, nil)
	if err != nil {
		return err
	}
	s.notify(ctx, NewNotification{
		RecipientID:   cmd.InfluencerID,
		Message:       fmt.Sprintf("Le commerçant a validé votre collaboration « %s ». Vous pouvez maintenant laisser un avis.", deal.Title),
		Type:          domain.NotificationCompleted,
		SenderID:      deal.MerchantID,
		RelatedDealID: deal.ID,
		TargetRoute:   dealRoute(deal.ID),
	})
	return nil
}

func (s *candidatureService) Review(ctx context.Context, cmd ReviewCommand) (*domain.Review, error) {
	deal, err := s.deals.FindByID(ctx, cmd.DealID)
	if err != nil {
		return nil, err
	}
	_, c := deal.FindCandidature(cmd.InfluencerID)
	if c == nil {
		return nil, fmt.Errorf("candidature %s: %w", cmd.InfluencerID, domain.ErrNotFound)
	}
	dir, subjectID, err := domain.ReviewDirectionFor(deal, c, cmd.Author.ID)
	if err != nil {
		return nil, err
	}
	if !domain.CanReview(c.Status) {
		return nil, domain.ErrReviewNotAllowed
	}
	if c.ReviewIn(dir) != nil {
		return nil, domain.ErrReviewExists
	}

	review, err := domain.NewReview(cmd.Author, cmd.Scores, cmd.Comment, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.deals.AttachReview(ctx, deal.ID, c.InfluencerID, dir, review); err != nil {
		return nil, err
	}

	if err := s.ratings.Record(ctx, dir.SubjectRole(), subjectID, review.Rating); err != nil {
		s.logger.Warn("rating aggregate update failed", zap.String("userId", subjectID), zap.Error(err))
	}
	s.notify(ctx, NewNotification{
		RecipientID:   subjectID,
		Message:       fmt.Sprintf("%s vous a laissé un avis (%d/5) pour « %s ».", displayName(review.AuthorName, "Votre partenaire"), review.Rating, deal.Title),
		Type:          domain.NotificationReview,
		SenderID:      review.AuthorID,
		RelatedDealID: deal.ID,
		TargetRoute:   dealRoute(deal.ID),
	})
	return &review, nil
}

// fire runs one status event: read, authorize, transition, conditional write.
func (s *candidatureService) fire(ctx context.Context, cmd TransitionCommand, event domain.Event, proofs []domain.Proof) (*domain.Deal, domain.Outcome, error) {
	deal, err := s.deals.FindByID(ctx, cmd.DealID)
	if err != nil {
		return nil, domain.Outcome{}, err
	}
	_, c := deal.FindCandidature(cmd.InfluencerID)
	if c == nil {
		return nil, domain.Outcome{}, fmt.Errorf("candidature %s: %w", cmd.InfluencerID, domain.ErrNotFound)
	}
	if err := authorize(deal, c, cmd.ActorID, domain.ActorFor(event)); err != nil {
		return nil, domain.Outcome{}, err
	}

	outcome, err := domain.Transition(c.Status, event)
	if err != nil {
		return nil, domain.Outcome{}, err
	}

	if outcome.Removed {
		err = s.deals.RemoveCandidature(ctx, deal.ID, c.InfluencerID, outcome.From)
	} else {
		err = s.deals.UpdateCandidature(ctx, deal.ID, CandidatureChange{
			InfluencerID: c.InfluencerID,
			From:         outcome.From,
			To:           outcome.To,
			Proofs:       proofs,
			UpdatedAt:    s.now(),
		})
	}
	if err != nil {
		return nil, domain.Outcome{}, err
	}

	s.logger.Info("candidature transition",
		zap.String("dealId", deal.ID),
		zap.String("influencerId", c.InfluencerID),
		zap.String("event", string(event)),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.Bool("removed", outcome.Removed),
	)
	return deal, outcome, nil
}

func (s *candidatureService) notify(ctx context.Context, n NewNotification) {
	s.notifications.Append(ctx, n)
}

func authorize(deal *domain.Deal, c *domain.Candidature, actorID string, role domain.Role) error {
	switch role {
	case domain.RoleMerchant:
		if actorID == "" || actorID != deal.MerchantID {
			return domain.ErrForbidden
		}
	case domain.RoleInfluencer:
		if actorID == "" || actorID != c.InfluencerID {
			return domain.ErrForbidden
		}
	}
	return nil
}

func copyProofs(proofs []domain.Proof) []domain.Proof {
	return append([]domain.Proof{}, proofs...)
}

func openingMessageKey(dealID, influencerID string) string {
	return "apply:" + dealID + ":" + influencerID
}

func dealRoute(dealID string) string {
	return "/deals/" + dealID
}

func candidaturesRoute(dealID string) string {
	return "/deals/" + dealID + "/candidatures"
}

func displayName(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}
