package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/collabmarket/collab-services/api/internal/infrastructure/memory"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

const (
	merchantID   = "merchant-1"
	influencerID = "influencer-1"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store         *memory.Store
	deals         app.DealService
	candidatures  app.CandidatureService
	notifications app.NotificationService
	chats         app.ChatService
	ratings       app.RatingService
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	deals         app.DealRepository
	notifications app.NotificationRepository
	chats         app.ChatRepository
}

func withDeals(repo app.DealRepository) fixtureOption {
	return func(d *fixtureDeps) { d.deals = repo }
}

func withNotificationRepo(repo app.NotificationRepository) fixtureOption {
	return func(d *fixtureDeps) { d.notifications = repo }
}

func withChatRepo(repo app.ChatRepository) fixtureOption {
	return func(d *fixtureDeps) { d.chats = repo }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	deps := fixtureDeps{
		deals:         store.Deals(),
		notifications: store.Notifications(),
		chats:         store.Chats(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	notifications := app.NewNotificationService(deps.notifications, nil)
	chats := app.NewChatService(deps.chats, nil)
	ratings := app.NewRatingService(deps.deals, store.Ratings(), nil, nil)
	return &fixture{
		store:         store,
		deals:         app.NewDealService(deps.deals, nil),
		notifications: notifications,
		chats:         chats,
		ratings:       ratings,
		candidatures: app.NewCandidatureService(app.CandidatureServiceConfig{
			Deals:         deps.deals,
			Notifications: notifications,
			Chats:         chats,
			Ratings:       ratings,
			Now:           func() time.Time { return fixedNow },
		}),
	}
}

func (f *fixture) createDeal(t *testing.T, title string) *domain.Deal {
	t.Helper()
	deal, err := f.deals.Create(context.Background(), app.CreateDealCommand{
		MerchantID:   merchantID,
		Title:        title,
		LocationName: "Le Marais",
	})
	require.NoError(t, err)
	return deal
}

func (f *fixture) candidature(t *testing.T, dealID, influencer string) *domain.Candidature {
	t.Helper()
	deal, err := f.store.Deals().FindByID(context.Background(), dealID)
	require.NoError(t, err)
	_, c := deal.FindCandidature(influencer)
	return c
}

func asMerchant(dealID string) app.TransitionCommand {
	return app.TransitionCommand{DealID: dealID, InfluencerID: influencerID, ActorID: merchantID}
}

func proofs() []domain.Proof {
	return []domain.Proof{{Image: "https://cdn.example/p1.jpg", Likes: 120, Shares: 8}}
}

func fiveScores(v int) domain.CategoryScores {
	return domain.CategoryScores{v, v, v, v, v}
}

func TestCollaborationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deal := f.createDeal(t, "Brunch offert")

	c, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID, Name: "Léa"}})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, c.Status)

	merchantInbox, err := f.notifications.List(ctx, merchantID, false, 0)
	require.NoError(t, err)
	require.Len(t, merchantInbox, 1)
	require.Equal(t, domain.NotificationApplication, merchantInbox[0].Type)
	require.Equal(t, influencerID, merchantInbox[0].FromUserID)
	require.Contains(t, merchantInbox[0].Message, "Léa")
	require.Equal(t, deal.ID, *merchantInbox[0].RelatedDealID)

	thread, err := f.chats.Thread(ctx, merchantID, domain.ThreadID(merchantID, influencerID))
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
	require.Equal(t, influencerID, thread.Messages[0].SenderID)

	require.NoError(t, f.candidatures.Accept(ctx, asMerchant(deal.ID)))
	require.Equal(t, domain.StatusAccepted, f.candidature(t, deal.ID, influencerID).Status)

	require.NoError(t, f.candidatures.SyncProofs(ctx, app.ProofsCommand{
		DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID,
		Proofs: []domain.Proof{{Image: "draft.jpg"}},
	}))
	require.Len(t, f.candidature(t, deal.ID, influencerID).Proofs, 1)

	done := app.ProofsCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID, Proofs: proofs()}
	require.NoError(t, f.candidatures.MarkDone(ctx, done))
	require.Equal(t, domain.StatusApproval, f.candidature(t, deal.ID, influencerID).Status)

	asInfluencer := app.TransitionCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID}
	require.NoError(t, f.candidatures.Retract(ctx, asInfluencer))
	require.Equal(t, domain.StatusAccepted, f.candidature(t, deal.ID, influencerID).Status)
	require.NoError(t, f.candidatures.MarkDone(ctx, done))

	require.NoError(t, f.candidatures.Approve(ctx, asMerchant(deal.ID)))
	final := f.candidature(t, deal.ID, influencerID)
	require.Equal(t, domain.StatusCompleted, final.Status)
	require.Equal(t, proofs(), final.Proofs)

	review, err := f.candidatures.Review(ctx, app.ReviewCommand{
		DealID: deal.ID, InfluencerID: influencerID,
		Author:  domain.Author{ID: merchantID, Name: "Boulangerie"},
		Scores:  domain.CategoryScores{4, 5, 4, 5, 5},
		Comment: "Très pro",
	})
	require.NoError(t, err)
	require.Equal(t, 5, review.Rating)

	_, err = f.candidatures.Review(ctx, app.ReviewCommand{
		DealID: deal.ID, InfluencerID: influencerID,
		Author: domain.Author{ID: influencerID}, Scores: fiveScores(3), Comment: "Bien",
	})
	require.NoError(t, err)

	stored := f.candidature(t, deal.ID, influencerID)
	require.NotNil(t, stored.MerchantReview)
	require.NotNil(t, stored.InfluencerReview)

	influencerRating, err := f.ratings.Get(ctx, domain.RoleInfluencer, influencerID)
	require.NoError(t, err)
	require.Equal(t, domain.RatingAggregate{UserID: influencerID, Role: domain.RoleInfluencer, Sum: 5, Count: 1}, influencerRating)
	merchantRating, err := f.ratings.Get(ctx, domain.RoleMerchant, merchantID)
	require.NoError(t, err)
	require.Equal(t, 3, merchantRating.Sum)
	merchantAsInfluencer, err := f.ratings.Get(ctx, domain.RoleInfluencer, merchantID)
	require.NoError(t, err)
	require.Zero(t, merchantAsInfluencer.Count)

	_, err = f.candidatures.Review(ctx, app.ReviewCommand{
		DealID: deal.ID, InfluencerID: influencerID,
		Author: domain.Author{ID: merchantID}, Scores: fiveScores(1), Comment: "encore",
	})
	require.ErrorIs(t, err, domain.ErrReviewExists)

	influencerInbox, err := f.notifications.List(ctx, influencerID, false, 0)
	require.NoError(t, err)
	types := make([]domain.NotificationType, 0, len(influencerInbox))
	for _, n := range influencerInbox {
		types = append(types, n.Type)
	}
	require.Equal(t, []domain.NotificationType{
		domain.NotificationReview,
		domain.NotificationCompleted,
		domain.NotificationAccepted,
	}, types)
}

func TestApplyGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deal := f.createDeal(t, "Atelier céramique")

	apply := app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}}
	_, err := f.candidatures.Apply(ctx, apply)
	require.NoError(t, err)

	_, err = f.candidatures.Apply(ctx, apply)
	require.ErrorIs(t, err, domain.ErrDuplicateApplication)

	_, err = f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: merchantID}})
	require.ErrorIs(t, err, domain.ErrOwnDeal)

	_, err = f.candidatures.Apply(ctx, app.ApplyCommand{DealID: "deal-404", Influencer: domain.Author{ID: influencerID}})
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.deals.Close(ctx, deal.ID, merchantID))
	_, err = f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: "influencer-2"}})
	require.ErrorIs(t, err, domain.ErrDealNotActive)
}

func TestTransitionAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deal := f.createDeal(t, "Menu dégustation")
	_, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}})
	require.NoError(t, err)

	err = f.candidatures.Accept(ctx, app.TransitionCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID})
	require.ErrorIs(t, err, domain.ErrForbidden)

	err = f.candidatures.Accept(ctx, app.TransitionCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: "merchant-2"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	err = f.candidatures.Accept(ctx, app.TransitionCommand{DealID: deal.ID, InfluencerID: "nobody", ActorID: merchantID})
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = f.candidatures.MarkDone(ctx, app.ProofsCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: merchantID, Proofs: proofs()})
	require.ErrorIs(t, err, domain.ErrForbidden)

	// illegal edge: approve straight from Envoyé
	err = f.candidatures.Approve(ctx, asMerchant(deal.ID))
	require.True(t, domain.IsValidation(err))
	require.Equal(t, domain.StatusSubmitted, f.candidature(t, deal.ID, influencerID).Status)

	err = f.candidatures.SyncProofs(ctx, app.ProofsCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID, Proofs: proofs()})
	require.True(t, domain.IsValidation(err))

	_, err = f.candidatures.Review(ctx, app.ReviewCommand{
		DealID: deal.ID, InfluencerID: influencerID,
		Author: domain.Author{ID: merchantID}, Scores: fiveScores(4), Comment: "trop tôt",
	})
	require.ErrorIs(t, err, domain.ErrReviewNotAllowed)
}

func TestMarkDoneRequiresCompleteProofs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deal := f.createDeal(t, "Yoga")
	_, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}})
	require.NoError(t, err)
	require.NoError(t, f.candidatures.Accept(ctx, asMerchant(deal.ID)))

	err = f.candidatures.MarkDone(ctx, app.ProofsCommand{DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID})
	require.True(t, domain.IsValidation(err))

	err = f.candidatures.MarkDone(ctx, app.ProofsCommand{
		DealID: deal.ID, InfluencerID: influencerID, ActorID: influencerID,
		Proofs: []domain.Proof{{Image: "x.jpg", Likes: 3}},
	})
	require.True(t, domain.IsValidation(err))
	require.Equal(t, domain.StatusAccepted, f.candidature(t, deal.ID, influencerID).Status)
}

func TestCancelRemovesCandidature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deal := f.createDeal(t, "Coupe et brushing")

	for _, id := range []string{influencerID, "influencer-2"} {
		_, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: id}})
		require.NoError(t, err)
	}
	require.NoError(t, f.candidatures.Accept(ctx, asMerchant(deal.ID)))
	require.NoError(t, f.candidatures.Cancel(ctx, asMerchant(deal.ID)))

	require.Nil(t, f.candidature(t, deal.ID, influencerID))
	require.NotNil(t, f.candidature(t, deal.ID, "influencer-2"))

	inbox, err := f.notifications.List(ctx, influencerID, true, 0)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationCancelled, inbox[0].Type)
	require.Contains(t, inbox[0].Message, "collaboration")

	// a cancelled influencer may apply again; the opening message is not repeated
	_, err = f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, f.candidature(t, deal.ID, influencerID).Status)

	thread, err := f.chats.Thread(ctx, influencerID, domain.ThreadID(influencerID, merchantID))
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
}

// staleDeals serves a snapshot taken before a concurrent writer moved the candidature.
type staleDeals struct {
	*memory.DealRepository
	snapshot *domain.Deal
}

func (s *staleDeals) FindByID(ctx context.Context, id string) (*domain.Deal, error) {
	if s.snapshot != nil && s.snapshot.ID == id {
		copied := *s.snapshot
		copied.Candidatures = append([]domain.Candidature{}, s.snapshot.Candidatures...)
		return &copied, nil
	}
	return s.DealRepository.FindByID(ctx, id)
}

func TestConcurrentTransitionConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stale := &staleDeals{DealRepository: store.Deals()}

	f := newFixture(t, withDeals(stale))
	deal, err := f.deals.Create(ctx, app.CreateDealCommand{MerchantID: merchantID, Title: "Box pâtisseries"})
	require.NoError(t, err)
	_, err = f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}})
	require.NoError(t, err)

	snapshot, err := store.Deals().FindByID(ctx, deal.ID)
	require.NoError(t, err)
	stale.snapshot = snapshot

	// another writer refuses first
	require.NoError(t, store.Deals().UpdateCandidature(ctx, deal.ID, app.CandidatureChange{
		InfluencerID: influencerID, From: domain.StatusSubmitted, To: domain.StatusRefused, UpdatedAt: fixedNow,
	}))

	err = f.candidatures.Accept(ctx, asMerchant(deal.ID))
	require.ErrorIs(t, err, domain.ErrConflict)

	err = f.candidatures.Cancel(ctx, asMerchant(deal.ID))
	require.ErrorIs(t, err, domain.ErrConflict)

	current, err := store.Deals().FindByID(ctx, deal.ID)
	require.NoError(t, err)
	_, c := current.FindCandidature(influencerID)
	require.Equal(t, domain.StatusRefused, c.Status)

	inbox, err := f.notifications.List(ctx, influencerID, false, 0)
	require.NoError(t, err)
	require.Empty(t, inbox)
}

type failingNotifications struct {
	*memory.NotificationRepository
}

func (failingNotifications) Insert(context.Context, *domain.Notification) error {
	return errors.New("notifications unavailable")
}

type failingChats struct {
	*memory.ChatRepository
}

func (failingChats) AppendMessage(context.Context, string, []string, domain.Message) (bool, error) {
	return false, errors.New("chats unavailable")
}

func TestSideEffectFailuresDoNotFailTransitions(t *testing.T) {
	ctx := context.Background()
	base := memory.NewStore()
	f := newFixture(t,
		withNotificationRepo(failingNotifications{base.Notifications()}),
		withChatRepo(failingChats{base.Chats()}),
	)
	deal := f.createDeal(t, "Cours de cuisine")

	_, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: domain.Author{ID: influencerID}})
	require.NoError(t, err)
	require.NoError(t, f.candidatures.Accept(ctx, asMerchant(deal.ID)))
	require.Equal(t, domain.StatusAccepted, f.candidature(t, deal.ID, influencerID).Status)
}
