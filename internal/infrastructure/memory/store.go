// Package memory provides process-local repositories with the same conditional-write
// semantics as the MongoDB implementation. It backs STORE_DRIVER=memory and the tests.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// Store holds every collection behind one mutex.
type Store struct {
	mu            sync.Mutex
	seq           int
	deals         map[string]*domain.Deal
	dealOrder     []string
	notifications []domain.Notification
	threads       map[string]*domain.Thread
	userChats     map[string][]domain.ChatSummary
	saved         map[string][]string
	ratings       map[string]domain.RatingAggregate // keyed by domain.RatingKey
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		deals:     make(map[string]*domain.Deal),
		threads:   make(map[string]*domain.Thread),
		userChats: make(map[string][]domain.ChatSummary),
		saved:     make(map[string][]string),
		ratings:   make(map[string]domain.RatingAggregate),
	}
}

// Deals returns the deal repository view of the store.
func (s *Store) Deals() *DealRepository { return &DealRepository{s: s} }

// Notifications returns the notification repository view of the store.
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

// Chats returns the chat repository view of the store.
func (s *Store) Chats() *ChatRepository { return &ChatRepository{s: s} }

// SavedDeals returns the saved-deal repository view of the store.
func (s *Store) SavedDeals() *SavedDealRepository { return &SavedDealRepository{s: s} }

// Ratings returns the rating repository view of the store.
func (s *Store) Ratings() *RatingRepository { return &RatingRepository{s: s} }

// DealRepository implements application.DealRepository.
type DealRepository struct{ s *Store }

var _ application.DealRepository = (*DealRepository)(nil)

func (r *DealRepository) FindByID(_ context.Context, id string) (*domain.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deal, ok := r.s.deals[id]
	if !ok {
		return nil, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
	}
	copied := cloneDeal(*deal)
	return &copied, nil
}

func (r *DealRepository) FindActive(_ context.Context) ([]domain.Deal, error) {
	return r.filter(func(d *domain.Deal) bool { return d.IsActive() }), nil
}

func (r *DealRepository) FindByMerchant(_ context.Context, merchantID string) ([]domain.Deal, error) {
	return r.filter(func(d *domain.Deal) bool { return d.MerchantID == merchantID }), nil
}

func (r *DealRepository) FindAll(_ context.Context) ([]domain.Deal, error) {
	return r.filter(func(*domain.Deal) bool { return true }), nil
}

func (r *DealRepository) filter(keep func(*domain.Deal) bool) []domain.Deal {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Deal, 0)
	for _, id := range r.s.dealOrder {
		if deal := r.s.deals[id]; keep(deal) {
			result = append(result, cloneDeal(*deal))
		}
	}
	return result
}

func (r *DealRepository) Create(_ context.Context, deal *domain.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if deal.ID == "" {
		r.s.seq++
		deal.ID = "deal-" + strconv.Itoa(r.s.seq)
	}
	if _, exists := r.s.deals[deal.ID]; exists {
		return fmt.Errorf("deal %s: %w", deal.ID, domain.ErrConflict)
	}
	stored := cloneDeal(*deal)
	r.s.deals[deal.ID] = &stored
	r.s.dealOrder = append(r.s.dealOrder, deal.ID)
	return nil
}

func (r *DealRepository) UpdateStatus(_ context.Context, dealID string, status domain.DealStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deal, ok := r.s.deals[dealID]
	if !ok {
		return fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}
	deal.Status = status
	return nil
}

func (r *DealRepository) AppendCandidature(_ context.Context, dealID string, c domain.Candidature) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deal, ok := r.s.deals[dealID]
	if !ok {
		return fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}
	if !deal.IsActive() {
		return domain.ErrDealNotActive
	}
	if _, existing := deal.FindCandidature(c.InfluencerID); existing != nil {
		return domain.ErrDuplicateApplication
	}
	deal.Candidatures = append(deal.Candidatures, cloneCandidature(c))
	return nil
}

func (r *DealRepository) UpdateCandidature(_ context.Context, dealID string, change application.CandidatureChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, err := r.locate(dealID, change.InfluencerID)
	if err != nil {
		return err
	}
	if c.Status != change.From {
		return fmt.Errorf("candidature %s is %s, expected %s: %w", change.InfluencerID, c.Status, change.From, domain.ErrConflict)
	}
	c.Status = change.To
	c.UpdatedAt = change.UpdatedAt
	if change.Proofs != nil {
		c.Proofs = append([]domain.Proof{}, change.Proofs...)
	}
	return nil
}

func (r *DealRepository) RemoveCandidature(_ context.Context, dealID, influencerID string, expected domain.CandidatureStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deal, ok := r.s.deals[dealID]
	if !ok {
		return fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}
	idx, c := deal.FindCandidature(influencerID)
	if c == nil {
		return fmt.Errorf("candidature %s: %w", influencerID, domain.ErrNotFound)
	}
	if c.Status != expected {
		return fmt.Errorf("candidature %s is %s, expected %s: %w", influencerID, c.Status, expected, domain.ErrConflict)
	}
	deal.Candidatures = append(deal.Candidatures[:idx], deal.Candidatures[idx+1:]...)
	return nil
}

func (r *DealRepository) AttachReview(_ context.Context, dealID, influencerID string, dir domain.ReviewDirection, review domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, err := r.locate(dealID, influencerID)
	if err != nil {
		return err
	}
	if c.ReviewIn(dir) != nil {
		return domain.ErrReviewExists
	}
	if !domain.CanReview(c.Status) {
		return fmt.Errorf("candidature %s is %s: %w", influencerID, c.Status, domain.ErrConflict)
	}
	stored := review
	switch dir {
	case domain.ReviewOfMerchant:
		c.InfluencerReview = &stored
	case domain.ReviewOfInfluencer:
		c.MerchantReview = &stored
	default:
		return domain.NewValidationError("review", "direction inconnue")
	}
	return nil
}

func (r *DealRepository) locate(dealID, influencerID string) (*domain.Candidature, error) {
	deal, ok := r.s.deals[dealID]
	if !ok {
		return nil, fmt.Errorf("deal %s: %w", dealID, domain.ErrNotFound)
	}
	_, c := deal.FindCandidature(influencerID)
	if c == nil {
		return nil, fmt.Errorf("candidature %s: %w", influencerID, domain.ErrNotFound)
	}
	return c, nil
}

// NotificationRepository implements application.NotificationRepository.
type NotificationRepository struct{ s *Store }

var _ application.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Insert(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

// List returns newest first.
func (r *NotificationRepository) List(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Notification, 0)
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, recipientID, notificationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.ID == notificationID && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// ChatRepository implements application.ChatRepository.
type ChatRepository struct{ s *Store }

var _ application.ChatRepository = (*ChatRepository)(nil)

func (r *ChatRepository) AppendMessage(_ context.Context, threadID string, participants []string, msg domain.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	thread, ok := r.s.threads[threadID]
	if !ok {
		thread = &domain.Thread{ID: threadID, Participants: append([]string{}, participants...)}
		r.s.threads[threadID] = thread
	}
	if msg.Key != "" {
		for _, existing := range thread.Messages {
			if existing.Key == msg.Key {
				return false, nil
			}
		}
	}
	thread.Messages = append(thread.Messages, msg)
	return true, nil
}

func (r *ChatRepository) FindThread(_ context.Context, threadID string) (*domain.Thread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	thread, ok := r.s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	copied := domain.Thread{
		ID:           thread.ID,
		Participants: append([]string{}, thread.Participants...),
		Messages:     append([]domain.Message{}, thread.Messages...),
	}
	return &copied, nil
}

func (r *ChatRepository) UpsertSummary(_ context.Context, userID string, summary domain.ChatSummary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.userChats[userID] = domain.UpsertSummary(r.s.userChats[userID], summary)
	return nil
}

func (r *ChatRepository) FindSummaries(_ context.Context, userID string) ([]domain.ChatSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.ChatSummary{}, r.s.userChats[userID]...), nil
}

func (r *ChatRepository) MarkSummaryRead(_ context.Context, userID, threadID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.userChats[userID]
	for i := range list {
		if list[i].ChatID == threadID {
			list[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("chat %s: %w", threadID, domain.ErrNotFound)
}

// SavedDealRepository implements application.SavedDealRepository.
type SavedDealRepository struct{ s *Store }

var _ application.SavedDealRepository = (*SavedDealRepository)(nil)

func (r *SavedDealRepository) Toggle(_ context.Context, influencerID, dealID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.saved[influencerID]
	for i, id := range list {
		if id == dealID {
			r.s.saved[influencerID] = append(list[:i], list[i+1:]...)
			return false, nil
		}
	}
	r.s.saved[influencerID] = append(list, dealID)
	return true, nil
}

func (r *SavedDealRepository) List(_ context.Context, influencerID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]string{}, r.s.saved[influencerID]...), nil
}

// RatingRepository implements application.RatingRepository.
type RatingRepository struct{ s *Store }

var _ application.RatingRepository = (*RatingRepository)(nil)

func (r *RatingRepository) Increment(_ context.Context, role domain.Role, userID string, rating int) (domain.RatingAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := domain.RatingKey(role, userID)
	agg := r.s.ratings[key]
	agg.UserID = userID
	agg.Role = role
	agg.Add(rating)
	r.s.ratings[key] = agg
	return agg, nil
}

func (r *RatingRepository) Find(_ context.Context, role domain.Role, userID string) (domain.RatingAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agg := r.s.ratings[domain.RatingKey(role, userID)]
	agg.UserID = userID
	agg.Role = role
	return agg, nil
}

func (r *RatingRepository) ReplaceAll(_ context.Context, aggregates []domain.RatingAggregate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ratings = make(map[string]domain.RatingAggregate, len(aggregates))
	for _, agg := range aggregates {
		r.s.ratings[agg.Key()] = agg
	}
	return nil
}

func cloneDeal(d domain.Deal) domain.Deal {
	out := d
	out.Interests = append([]string{}, d.Interests...)
	out.TypeOfContent = append([]string{}, d.TypeOfContent...)
	if d.LocationCoords != nil {
		c := *d.LocationCoords
		out.LocationCoords = &c
	}
	if d.ValidUntil != nil {
		t := *d.ValidUntil
		out.ValidUntil = &t
	}
	out.Candidatures = make([]domain.Candidature, 0, len(d.Candidatures))
	for _, c := range d.Candidatures {
		out.Candidatures = append(out.Candidatures, cloneCandidature(c))
	}
	return out
}

func cloneCandidature(c domain.Candidature) domain.Candidature {
	out := c
	out.Proofs = append([]domain.Proof{}, c.Proofs...)
	if c.InfluencerReview != nil {
		r := *c.InfluencerReview
		out.InfluencerReview = &r
	}
	if c.MerchantReview != nil {
		r := *c.MerchantReview
		out.MerchantReview = &r
	}
	return out
}
