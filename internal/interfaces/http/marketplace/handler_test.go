package marketplace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/infrastructure/memory"
	"github.com/collabmarket/collab-services/api/internal/interfaces/http/common"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
)

const (
	merchantID   = "merchant-1"
	influencerID = "influencer-1"
)

// testAuth trusts X-User-ID; the JWT middleware is covered in the server package.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			common.WriteMessage(zap.NewNop(), w, http.StatusUnauthorized, "missing user")
			return
		}
		ctx := common.ContextWithUser(r.Context(), common.AuthenticatedUser{ID: id, Name: "User " + id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()

	notifications := app.NewNotificationService(store.Notifications(), logger)
	chats := app.NewChatService(store.Chats(), logger)
	ratings := app.NewRatingService(store.Deals(), store.Ratings(), nil, logger)
	handler := NewHandler(Config{
		Logger: logger,
		Deals:  app.NewDealService(store.Deals(), logger),
		Candidatures: app.NewCandidatureService(app.CandidatureServiceConfig{
			Deals:         store.Deals(),
			Notifications: notifications,
			Chats:         chats,
			Ratings:       ratings,
			Logger:        logger,
		}),
		Notifications: notifications,
		Chats:         chats,
		Ratings:       ratings,
		Feeds:         app.NewFeedService(store.Deals(), ratings, logger),
		SavedDeals:    app.NewSavedDealService(store.SavedDeals(), store.Deals()),
	})

	router := chi.NewRouter()
	handler.Register(router, testAuth)
	return router
}

func do(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createDeal(t *testing.T, router http.Handler, title string, coords *coordinatesPayload) dealResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/deals", merchantID, dealCreateRequest{
		Title:          title,
		Description:    "Un repas offert contre une story",
		LocationCoords: coords,
		Interests:      []string{"food"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dealResponse](t, rec)
}

func TestCollaborationScenario(t *testing.T) {
	router := newTestRouter(t)
	deal := createDeal(t, router, "Brunch", nil)
	base := "/deals/" + deal.ID + "/candidatures"
	mine := base + "/" + influencerID

	rec := do(t, router, http.MethodPost, base, influencerID, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "Envoyé", decode[candidatureResponse](t, rec).Status)

	rec = do(t, router, http.MethodPost, base, influencerID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, mine+"/accept", influencerID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, mine+"/accept", merchantID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	proofs := proofsRequest{Proofs: []proofPayload{
		{Image: "img://1", Likes: 10, Shares: 2},
		{Image: "img://2", Likes: 4, Shares: 1},
	}}
	rec = do(t, router, http.MethodPost, mine+"/done", influencerID, proofs)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, mine+"/approve", merchantID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	review := reviewRequest{Scores: []int{4, 5, 4, 5, 5}, Comment: "Super accueil"}
	rec = do(t, router, http.MethodPost, mine+"/reviews", merchantID, review)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 5, decode[reviewResponse](t, rec).Rating)

	rec = do(t, router, http.MethodPost, mine+"/reviews", merchantID, review)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/users/"+influencerID+"/rating", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rating := decode[userRatingsResponse](t, rec)
	require.Equal(t, 1, rating.AsInfluencer.Count)
	require.Equal(t, 5, rating.AsInfluencer.Stars)
	require.Equal(t, "influencer", rating.AsInfluencer.Role)
	require.Zero(t, rating.AsMerchant.Count)

	rec = do(t, router, http.MethodGet, "/deals/"+deal.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[dealResponse](t, rec)
	require.Len(t, detail.Candidatures, 1)
	require.Equal(t, "Terminé", detail.Candidatures[0].Status)
	require.Len(t, detail.Candidatures[0].Proofs, 2)
	require.NotNil(t, detail.Candidatures[0].MerchantReview)
	require.Nil(t, detail.Candidatures[0].InfluencerReview)
}

func TestInboxAfterApplication(t *testing.T) {
	router := newTestRouter(t)
	deal := createDeal(t, router, "Atelier", nil)

	rec := do(t, router, http.MethodPost, "/deals/"+deal.ID+"/candidatures", influencerID, applyRequest{Message: "Bonjour !"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/notifications?unread=true", merchantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[notificationListResponse](t, rec)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(1), list.UnreadCount)
	require.Equal(t, "candidature", list.Items[0].Type)

	rec = do(t, router, http.MethodPost, "/notifications/"+list.Items[0].ID+"/read", influencerID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "only the recipient may mark a notification")

	rec = do(t, router, http.MethodPost, "/notifications/"+list.Items[0].ID+"/read", merchantID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/chats", merchantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chats := decode[struct {
		Items []chatSummaryResponse `json:"items"`
	}](t, rec)
	require.Len(t, chats.Items, 1)
	require.Equal(t, influencerID, chats.Items[0].ReceiverID)
	require.Equal(t, "Bonjour !", chats.Items[0].LastMessage)
	require.False(t, chats.Items[0].Read)

	threadID := chats.Items[0].ChatID
	rec = do(t, router, http.MethodGet, "/chats/"+threadID, "stranger", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/chats/messages", merchantID, sendMessageRequest{ReceiverID: influencerID, Text: "Avec plaisir"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/chats/"+threadID, influencerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	thread := decode[threadResponse](t, rec)
	require.Len(t, thread.Messages, 2)
	require.Equal(t, "Avec plaisir", thread.Messages[1].Text)
}

func TestFeeds(t *testing.T) {
	router := newTestRouter(t)
	far := createDeal(t, router, "Lyon", &coordinatesPayload{Latitude: 45.76, Longitude: 4.83})
	unlocated := createDeal(t, router, "En ligne", nil)
	near := createDeal(t, router, "Paris", &coordinatesPayload{Latitude: 48.86, Longitude: 2.35})

	rec := do(t, router, http.MethodGet, "/deals/feed/nearby?lat=48.85&lng=2.35", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[nearbyFeedResponse](t, rec)
	require.Len(t, feed.Items, 3)
	require.Equal(t, near.ID, feed.Items[0].Deal.ID)
	require.Equal(t, far.ID, feed.Items[1].Deal.ID)
	require.Equal(t, unlocated.ID, feed.Items[2].Deal.ID)
	require.NotNil(t, feed.Items[0].DistanceKm)
	require.Nil(t, feed.Items[2].DistanceKm)

	rec = do(t, router, http.MethodGet, "/deals/feed/nearby?lat=48.85", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/deals/"+unlocated.ID+"/candidatures", influencerID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/deals/feed/popular", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	popular := decode[popularFeedResponse](t, rec)
	require.Len(t, popular.Popular, 3)
	require.Empty(t, popular.Other)
	require.Equal(t, unlocated.ID, popular.Popular[0].Deal.ID)
	require.Equal(t, 1, popular.Popular[0].CandidatureCount)

	rec = do(t, router, http.MethodGet, "/merchants/me/dashboard", merchantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dashboard := decode[dashboardResponse](t, rec)
	require.Equal(t, 3, dashboard.TotalDeals)
	require.Equal(t, 1, dashboard.TotalCandidatures)
	require.Equal(t, 1, dashboard.StatusCounts["Envoyé"])
}

func TestCloseAndSavedDeals(t *testing.T) {
	router := newTestRouter(t)
	deal := createDeal(t, router, "Spa", nil)

	rec := do(t, router, http.MethodPost, "/saved-deals/"+deal.ID+"/toggle", influencerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[map[string]bool](t, rec)["saved"])

	rec = do(t, router, http.MethodGet, "/saved-deals", influencerID, nil)
	require.Equal(t, []string{deal.ID}, decode[map[string][]string](t, rec)["deals"])

	rec = do(t, router, http.MethodPost, "/saved-deals/"+deal.ID+"/toggle", influencerID, nil)
	require.False(t, decode[map[string]bool](t, rec)["saved"])

	rec = do(t, router, http.MethodPost, "/saved-deals/missing/toggle", influencerID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/deals/"+deal.ID+"/close", influencerID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/deals/"+deal.ID+"/close", merchantID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/deals/"+deal.ID+"/candidatures", influencerID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthAndValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/notifications", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/deals", merchantID, dealCreateRequest{Title: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "title", decode[common.ErrorResponse](t, rec).Field)

	rec = do(t, router, http.MethodGet, "/deals/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	deal := createDeal(t, router, "Café", nil)
	rec = do(t, router, http.MethodPost, "/deals/"+deal.ID+"/candidatures/"+influencerID+"/reviews", merchantID,
		reviewRequest{Scores: []int{5, 5}, Comment: "ok"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "scores", decode[common.ErrorResponse](t, rec).Field)
}
