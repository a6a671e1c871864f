package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type notificationService struct {
	repo   NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService builds the dispatcher over repo.
func NewNotificationService(repo NotificationRepository, logger *zap.Logger) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notificationService{
		repo:   repo,
		logger: logger.Named("notification"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append is best-effort: failures are logged and never reach the caller.
func (s *notificationService) Append(ctx context.Context, in NewNotification) {
	recipient := strings.TrimSpace(in.RecipientID)
	if recipient == "" {
		s.logger.Warn("notification dropped: empty recipient", zap.String("type", string(in.Type)))
		return
	}

	n := &domain.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipient,
		Message:       in.Message,
		Type:          in.Type,
		FromUserID:    in.SenderID,
		RelatedDealID: optionalString(in.RelatedDealID),
		TargetRoute:   optionalString(in.TargetRoute),
		Read:          false,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.logger.Warn("notification insert failed",
			zap.String("recipientId", recipient),
			zap.String("type", string(in.Type)),
			zap.Error(err),
		)
	}
}

func (s *notificationService) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.List(ctx, recipientID, unreadOnly, limit)
}

// MarkRead only matches notifications owned by recipientID, so another user's id yields ErrNotFound.
func (s *notificationService) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
