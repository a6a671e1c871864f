package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPointDocument は deals.locationCoords の埋め込み構造。
type GeoPointDocument struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
}

// DealDocument mirrors deals/{dealId} as both clients read and write it.
type DealDocument struct {
	ID             primitive.ObjectID    `bson:"_id"`
	Title          string                `bson:"title"`
	Description    string                `bson:"description"`
	ImageURL       string                `bson:"imageUrl"`
	MerchantID     string                `bson:"merchantId"`
	Status         string                `bson:"status"`
	Location       string                `bson:"location,omitempty"`
	LocationCoords *GeoPointDocument     `bson:"locationCoords,omitempty"`
	LocationName   string                `bson:"locationName,omitempty"`
	Interests      []string              `bson:"interests"`
	TypeOfContent  []string              `bson:"typeOfContent"`
	ValidUntil     *time.Time            `bson:"validUntil,omitempty"`
	Conditions     string                `bson:"conditions"`
	Candidatures   []CandidatureDocument `bson:"candidatures"`
	CreatedAt      time.Time             `bson:"createdAt"`
}

// CandidatureDocument is one element of deals.candidatures.
type CandidatureDocument struct {
	InfluencerID     string          `bson:"influenceurId"`
	Status           string          `bson:"status"`
	Proofs           []ProofDocument `bson:"proofs"`
	InfluencerReview *ReviewDocument `bson:"influencerReview,omitempty"`
	MerchantReview   *ReviewDocument `bson:"merchantReview,omitempty"`
	AppliedAt        *time.Time      `bson:"appliedAt,omitempty"`
	UpdatedAt        *time.Time      `bson:"updatedAt,omitempty"`
}

// ProofDocument is one element of candidatures.proofs.
type ProofDocument struct {
	Image     string `bson:"image"`
	Likes     int    `bson:"likes"`
	Shares    int    `bson:"shares"`
	Validated bool   `bson:"validated"`
}

// ReviewDocument is the shared shape of both review sub-fields.
type ReviewDocument struct {
	AuthorID     string    `bson:"authorId"`
	AuthorName   string    `bson:"authorName"`
	AuthorAvatar string    `bson:"authorAvatar,omitempty"`
	Rating       int       `bson:"rating"`
	Scores       []int     `bson:"scores,omitempty"`
	Comment      string    `bson:"comment"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// NotificationDocument is users/{uid}/notifications/{id} flattened into one collection keyed by userId.
type NotificationDocument struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"userId"`
	Message       string    `bson:"message"`
	Type          string    `bson:"type"`
	FromUserID    string    `bson:"fromUserId"`
	RelatedDealID *string   `bson:"relatedDealId"`
	TargetRoute   *string   `bson:"targetRoute"`
	Read          bool      `bson:"read"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// ChatDocument is chats/{threadId}.
type ChatDocument struct {
	ID           string            `bson:"_id"`
	Participants []string          `bson:"participants,omitempty"`
	Messages     []MessageDocument `bson:"messages"`
}

// MessageDocument is one element of chats.messages.
type MessageDocument struct {
	ID        string    `bson:"id,omitempty"`
	SenderID  string    `bson:"senderId"`
	Text      string    `bson:"text"`
	Key       string    `bson:"key,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// UserChatsDocument is userchats/{uid}.
type UserChatsDocument struct {
	ID    string                `bson:"_id"`
	Chats []ChatSummaryDocument `bson:"chats"`
}

// ChatSummaryDocument is one element of userchats.chats.
type ChatSummaryDocument struct {
	ChatID      string    `bson:"chatId"`
	ReceiverID  string    `bson:"receiverId"`
	LastMessage string    `bson:"lastMessage"`
	UpdatedAt   time.Time `bson:"updatedAt"`
	Read        bool      `bson:"read"`
}

// SavedDealsDocument is saveDeal/{uid}.
type SavedDealsDocument struct {
	ID    string   `bson:"_id"`
	Deals []string `bson:"deals"`
}

// RatingDocument is ratings/{role}:{uid}, the denormalized review aggregate of one
// user in one role.
type RatingDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Role      string    `bson:"role"`
	Sum       int       `bson:"sum"`
	Count     int       `bson:"count"`
	UpdatedAt time.Time `bson:"updatedAt"`
}
