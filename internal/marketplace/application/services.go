package application

import (
	"context"
	"time"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// CandidatureService owns the candidature lifecycle. Both clients call it instead of
// mutating the deal document themselves.
type CandidatureService interface {
	Apply(ctx context.Context, cmd ApplyCommand) (*domain.Candidature, error)
	Accept(ctx context.Context, cmd TransitionCommand) error
	Refuse(ctx context.Context, cmd TransitionCommand) error
	Cancel(ctx context.Context, cmd TransitionCommand) error
	SyncProofs(ctx context.Context, cmd ProofsCommand) error
	MarkDone(ctx context.Context, cmd ProofsCommand) error
	Retract(ctx context.Context, cmd TransitionCommand) error
	Approve(ctx context.Context, cmd TransitionCommand) error
	Review(ctx context.Context, cmd ReviewCommand) (*domain.Review, error)
}

// NotificationService is the notification dispatcher plus the recipient's feed operations.
type NotificationService interface {
	Append(ctx context.Context, n NewNotification)
	List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
}

// ChatService bootstraps and serves two-party threads.
type ChatService interface {
	Bootstrap(ctx context.Context, cmd BootstrapCommand) error
	Send(ctx context.Context, senderID, receiverID, text string) (*domain.Message, error)
	Summaries(ctx context.Context, userID string) ([]domain.ChatSummary, error)
	Thread(ctx context.Context, userID, threadID string) (*domain.Thread, error)
	MarkThreadRead(ctx context.Context, userID, threadID string) error
}

// RatingService exposes per-user rating aggregates, one per role. Recompute is keyed
// by domain.RatingKey.
type RatingService interface {
	Record(ctx context.Context, role domain.Role, userID string, rating int) error
	Get(ctx context.Context, role domain.Role, userID string) (domain.RatingAggregate, error)
	Recompute(ctx context.Context) (map[string]domain.RatingAggregate, error)
	Rebuild(ctx context.Context) (int, error)
}

// FeedService assembles read-side deal views.
type FeedService interface {
	Nearby(ctx context.Context, viewer *domain.Coordinates) ([]FeedItem, error)
	Popular(ctx context.Context) (*PopularFeed, error)
	MerchantDashboard(ctx context.Context, merchantID string) (*Dashboard, error)
}

// DealService covers the merchant-owned top-level deal fields.
type DealService interface {
	Create(ctx context.Context, cmd CreateDealCommand) (*domain.Deal, error)
	Close(ctx context.Context, dealID, merchantID string) error
	Detail(ctx context.Context, dealID string) (*domain.Deal, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Deal, error)
}

// SavedDealService toggles deals in an influencer's saved set.
type SavedDealService interface {
	Toggle(ctx context.Context, influencerID, dealID string) (bool, error)
	List(ctx context.Context, influencerID string) ([]string, error)
}

// ApplyCommand is an influencer applying to a deal.
type ApplyCommand struct {
	DealID     string
	Influencer domain.Author
	// Message overrides the default opening chat message.
	Message string
}

// TransitionCommand fires a status event on the candidature of InfluencerID.
type TransitionCommand struct {
	DealID       string
	InfluencerID string
	ActorID      string
}

// ProofsCommand carries the influencer's proof list.
type ProofsCommand struct {
	DealID       string
	InfluencerID string
	ActorID      string
	Proofs       []domain.Proof
}

// ReviewCommand attaches the author's review to a completed candidature.
type ReviewCommand struct {
	DealID       string
	InfluencerID string
	Author       domain.Author
	Scores       domain.CategoryScores
	Comment      string
}

// NewNotification is the dispatcher input. Empty RelatedDealID/TargetRoute are stored as null.
type NewNotification struct {
	RecipientID   string
	Message       string
	Type          domain.NotificationType
	SenderID      string
	RelatedDealID string
	TargetRoute   string
}

// BootstrapCommand opens or continues the thread between two users.
type BootstrapCommand struct {
	InitiatorID   string
	CounterpartID string
	Text          string
	// Key deduplicates the opening message; empty means always append.
	Key string
}

// CreateDealCommand is a merchant posting a deal.
type CreateDealCommand struct {
	MerchantID     string
	Title          string
	Description    string
	ImageURL       string
	Location       string
	LocationCoords *domain.Coordinates
	LocationName   string
	Interests      []string
	TypeOfContent  []string
	ValidUntil     *time.Time
	Conditions     string
}

// FeedItem is one deal as shown to creators.
type FeedItem struct {
	Deal             domain.Deal
	DistanceKm       *float64
	CandidatureCount int
	MerchantRating   domain.RatingAggregate
}

// PopularFeed splits active deals by candidature count.
type PopularFeed struct {
	Popular []FeedItem
	Other   []FeedItem
}

// Dashboard is a merchant's own deals with aggregated stats.
type Dashboard struct {
	MerchantID        string
	Deals             []DashboardDeal
	TotalDeals        int
	ActiveDeals       int
	TotalCandidatures int
	StatusCounts      map[domain.CandidatureStatus]int
	Rating            domain.RatingAggregate
}

// DashboardDeal is a deal row with its per-status candidature counts.
type DashboardDeal struct {
	Deal             domain.Deal
	StatusCounts     map[domain.CandidatureStatus]int
	AwaitingApproval int
}
