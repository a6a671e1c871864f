package marketplace

import (
	"time"

	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

type coordinatesPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type proofPayload struct {
	Image     string `json:"image"`
	Likes     int    `json:"likes"`
	Shares    int    `json:"shares"`
	Validated bool   `json:"validated"`
}

type reviewResponse struct {
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	Rating       int       `json:"rating"`
	Scores       []int     `json:"scores"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
}

type candidatureResponse struct {
	InfluencerID     string          `json:"influenceurId"`
	Status           string          `json:"status"`
	Proofs           []proofPayload  `json:"proofs"`
	InfluencerReview *reviewResponse `json:"influencerReview,omitempty"`
	MerchantReview   *reviewResponse `json:"merchantReview,omitempty"`
	AppliedAt        *time.Time      `json:"appliedAt,omitempty"`
	UpdatedAt        *time.Time      `json:"updatedAt,omitempty"`
}

type dealResponse struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	ImageURL       string                `json:"imageUrl"`
	MerchantID     string                `json:"merchantId"`
	Status         string                `json:"status"`
	Location       string                `json:"location,omitempty"`
	LocationCoords *coordinatesPayload   `json:"locationCoords,omitempty"`
	LocationName   string                `json:"locationName,omitempty"`
	Interests      []string              `json:"interests"`
	TypeOfContent  []string              `json:"typeOfContent"`
	ValidUntil     *time.Time            `json:"validUntil,omitempty"`
	Conditions     string                `json:"conditions"`
	Candidatures   []candidatureResponse `json:"candidatures"`
	CreatedAt      time.Time             `json:"createdAt"`
}

type ratingResponse struct {
	UserID  string  `json:"userId"`
	Role    string  `json:"role"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Stars   int     `json:"stars"`
}

type feedItemResponse struct {
	Deal             dealResponse   `json:"deal"`
	DistanceKm       *float64       `json:"distanceKm,omitempty"`
	CandidatureCount int            `json:"candidatureCount"`
	MerchantRating   ratingResponse `json:"merchantRating"`
}

type nearbyFeedResponse struct {
	Items []feedItemResponse `json:"items"`
}

type popularFeedResponse struct {
	Popular []feedItemResponse `json:"popular"`
	Other   []feedItemResponse `json:"other"`
}

type dashboardDealResponse struct {
	Deal             dealResponse   `json:"deal"`
	StatusCounts     map[string]int `json:"statusCounts"`
	AwaitingApproval int            `json:"awaitingApproval"`
}

type dashboardResponse struct {
	MerchantID        string                  `json:"merchantId"`
	Deals             []dashboardDealResponse `json:"deals"`
	TotalDeals        int                     `json:"totalDeals"`
	ActiveDeals       int                     `json:"activeDeals"`
	TotalCandidatures int                     `json:"totalCandidatures"`
	StatusCounts      map[string]int          `json:"statusCounts"`
	Rating            ratingResponse          `json:"rating"`
}

type notificationResponse struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	Type          string    `json:"type"`
	FromUserID    string    `json:"fromUserId"`
	RelatedDealID *string   `json:"relatedDealId"`
	TargetRoute   *string   `json:"targetRoute"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

type notificationListResponse struct {
	Items       []notificationResponse `json:"items"`
	UnreadCount int64                  `json:"unreadCount"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type threadResponse struct {
	ID           string            `json:"id"`
	Participants []string          `json:"participants"`
	Messages     []messageResponse `json:"messages"`
}

type chatSummaryResponse struct {
	ChatID      string    `json:"chatId"`
	ReceiverID  string    `json:"receiverId"`
	LastMessage string    `json:"lastMessage"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Read        bool      `json:"read"`
}

// request payloads

type dealCreateRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	ImageURL       string              `json:"imageUrl"`
	Location       string              `json:"location"`
	LocationCoords *coordinatesPayload `json:"locationCoords"`
	LocationName   string              `json:"locationName"`
	Interests      []string            `json:"interests"`
	TypeOfContent  []string            `json:"typeOfContent"`
	ValidUntil     *time.Time          `json:"validUntil"`
	Conditions     string              `json:"conditions"`
}

type applyRequest struct {
	Message string `json:"message"`
}

type proofsRequest struct {
	Proofs []proofPayload `json:"proofs"`
}

type reviewRequest struct {
	Scores  []int  `json:"scores"`
	Comment string `json:"comment"`
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

func buildDealResponse(deal domain.Deal) dealResponse {
	resp := dealResponse{
		ID:            deal.ID,
		Title:         deal.Title,
		Description:   deal.Description,
		ImageURL:      deal.ImageURL,
		MerchantID:    deal.MerchantID,
		Status:        string(deal.Status),
		Location:      deal.Location,
		LocationName:  deal.LocationName,
		Interests:     nonNil(deal.Interests),
		TypeOfContent: nonNil(deal.TypeOfContent),
		ValidUntil:    deal.ValidUntil,
		Conditions:    deal.Conditions,
		Candidatures:  make([]candidatureResponse, 0, len(deal.Candidatures)),
		CreatedAt:     deal.CreatedAt,
	}
	if deal.LocationCoords != nil {
		resp.LocationCoords = &coordinatesPayload{
			Latitude:  deal.LocationCoords.Latitude,
			Longitude: deal.LocationCoords.Longitude,
		}
	}
	for _, c := range deal.Candidatures {
		resp.Candidatures = append(resp.Candidatures, buildCandidatureResponse(c))
	}
	return resp
}

func buildCandidatureResponse(c domain.Candidature) candidatureResponse {
	resp := candidatureResponse{
		InfluencerID:     c.InfluencerID,
		Status:           string(c.Status),
		Proofs:           make([]proofPayload, 0, len(c.Proofs)),
		InfluencerReview: buildReviewResponse(c.InfluencerReview),
		MerchantReview:   buildReviewResponse(c.MerchantReview),
	}
	if !c.AppliedAt.IsZero() {
		applied := c.AppliedAt
		resp.AppliedAt = &applied
	}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		resp.UpdatedAt = &updated
	}
	for _, p := range c.Proofs {
		resp.Proofs = append(resp.Proofs, proofPayload(p))
	}
	return resp
}

func buildReviewResponse(r *domain.Review) *reviewResponse {
	if r == nil {
		return nil
	}
	return &reviewResponse{
		AuthorID:     r.AuthorID,
		AuthorName:   r.AuthorName,
		AuthorAvatar: r.AuthorAvatar,
		Rating:       r.Rating,
		Scores:       append([]int{}, r.Scores[:]...),
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
}

// userRatingsResponse は 1 ユーザーの役割別の評価をまとめて返す。
type userRatingsResponse struct {
	UserID       string         `json:"userId"`
	AsMerchant   ratingResponse `json:"asMerchant"`
	AsInfluencer ratingResponse `json:"asInfluencer"`
}

func buildRatingResponse(agg domain.RatingAggregate) ratingResponse {
	return ratingResponse{
		UserID:  agg.UserID,
		Role:    string(agg.Role),
		Average: agg.Average(),
		Count:   agg.Count,
		Stars:   agg.Stars(),
	}
}

func buildFeedItems(items []app.FeedItem) []feedItemResponse {
	result := make([]feedItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, feedItemResponse{
			Deal:             buildDealResponse(item.Deal),
			DistanceKm:       item.DistanceKm,
			CandidatureCount: item.CandidatureCount,
			MerchantRating:   buildRatingResponse(item.MerchantRating),
		})
	}
	return result
}

func buildDashboardResponse(d *app.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		MerchantID:        d.MerchantID,
		Deals:             make([]dashboardDealResponse, 0, len(d.Deals)),
		TotalDeals:        d.TotalDeals,
		ActiveDeals:       d.ActiveDeals,
		TotalCandidatures: d.TotalCandidatures,
		StatusCounts:      statusCounts(d.StatusCounts),
		Rating:            buildRatingResponse(d.Rating),
	}
	for _, row := range d.Deals {
		resp.Deals = append(resp.Deals, dashboardDealResponse{
			Deal:             buildDealResponse(row.Deal),
			StatusCounts:     statusCounts(row.StatusCounts),
			AwaitingApproval: row.AwaitingApproval,
		})
	}
	return resp
}

func statusCounts(in map[domain.CandidatureStatus]int) map[string]int {
	out := make(map[string]int, len(in))
	for status, n := range in {
		out[string(status)] = n
	}
	return out
}

func buildNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		ID:            n.ID,
		Message:       n.Message,
		Type:          string(n.Type),
		FromUserID:    n.FromUserID,
		RelatedDealID: n.RelatedDealID,
		TargetRoute:   n.TargetRoute,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

func buildThreadResponse(t *domain.Thread) threadResponse {
	resp := threadResponse{
		ID:           t.ID,
		Participants: nonNil(t.Participants),
		Messages:     make([]messageResponse, 0, len(t.Messages)),
	}
	for _, m := range t.Messages {
		resp.Messages = append(resp.Messages, buildMessageResponse(m))
	}
	return resp
}

func buildMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func (p proofPayload) toDomain() domain.Proof {
	return domain.Proof(p)
}

func (c *coordinatesPayload) toDomain() *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
