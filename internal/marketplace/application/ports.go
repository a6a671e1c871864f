package application

import (
	"context"
	"time"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// DealRepository is the document-store port for deals and their embedded candidatures.
// Candidature writes are conditional on the expected current status so concurrent
// writers never overwrite sibling candidatures; a lost race yields domain.ErrConflict.
type DealRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Deal, error)
	FindActive(ctx context.Context) ([]domain.Deal, error)
	FindByMerchant(ctx context.Context, merchantID string) ([]domain.Deal, error)
	FindAll(ctx context.Context) ([]domain.Deal, error)
	Create(ctx context.Context, deal *domain.Deal) error
	UpdateStatus(ctx context.Context, dealID string, status domain.DealStatus) error

	AppendCandidature(ctx context.Context, dealID string, c domain.Candidature) error
	UpdateCandidature(ctx context.Context, dealID string, change CandidatureChange) error
	RemoveCandidature(ctx context.Context, dealID, influencerID string, expected domain.CandidatureStatus) error
	AttachReview(ctx context.Context, dealID, influencerID string, dir domain.ReviewDirection, review domain.Review) error
}

// CandidatureChange is a compare-and-set update of one candidature.
// Proofs is left untouched when nil.
type CandidatureChange struct {
	InfluencerID string
	From         domain.CandidatureStatus
	To           domain.CandidatureStatus
	Proofs       []domain.Proof
	UpdatedAt    time.Time
}

// NotificationRepository persists notification feeds.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// ChatRepository persists threads and per-user inbox summaries.
type ChatRepository interface {
	// AppendMessage creates the thread when absent. A message whose Key already
	// exists in the thread is not appended and appended is false.
	AppendMessage(ctx context.Context, threadID string, participants []string, msg domain.Message) (appended bool, err error)
	FindThread(ctx context.Context, threadID string) (*domain.Thread, error)
	UpsertSummary(ctx context.Context, userID string, summary domain.ChatSummary) error
	FindSummaries(ctx context.Context, userID string) ([]domain.ChatSummary, error)
	MarkSummaryRead(ctx context.Context, userID, threadID string) error
}

// RatingRepository stores the denormalized per-user, per-role rating aggregate.
type RatingRepository interface {
	// Increment atomically folds rating in and returns the aggregate after the write.
	Increment(ctx context.Context, role domain.Role, userID string, rating int) (domain.RatingAggregate, error)
	Find(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, error)
	ReplaceAll(ctx context.Context, aggregates []domain.RatingAggregate) error
}

// RatingCache is an optional read-through cache in front of RatingRepository.
type RatingCache interface {
	Get(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, bool, error)
	// Set stores aggregate unless the cached entry already counts more reviews,
	// so a fill computed from an older read never replaces a newer value.
	Set(ctx context.Context, aggregate domain.RatingAggregate) error
	Invalidate(ctx context.Context, role domain.Role, userID string) error
}

// SavedDealRepository stores the per-influencer saved deal set.
type SavedDealRepository interface {
	Toggle(ctx context.Context, influencerID, dealID string) (saved bool, err error)
	List(ctx context.Context, influencerID string) ([]string, error)
}
