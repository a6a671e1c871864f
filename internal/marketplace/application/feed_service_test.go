package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

var (
	paris      = domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	versailles = domain.Coordinates{Latitude: 48.8049, Longitude: 2.1204}
	lyon       = domain.Coordinates{Latitude: 45.7640, Longitude: 4.8357}
)

func feedItem(id string, coords *domain.Coordinates, candidatures int) app.FeedItem {
	return app.FeedItem{
		Deal:             domain.Deal{ID: id, LocationCoords: coords},
		CandidatureCount: candidatures,
	}
}

func ids(items []app.FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Deal.ID)
	}
	return out
}

func TestSortByDistance(t *testing.T) {
	items := []app.FeedItem{
		feedItem("nocoords-1", nil, 0),
		feedItem("lyon", &lyon, 0),
		feedItem("versailles", &versailles, 0),
		feedItem("nocoords-2", nil, 0),
		feedItem("paris", &paris, 0),
	}

	app.SortByDistance(items, paris)
	require.Equal(t, []string{"paris", "versailles", "lyon", "nocoords-1", "nocoords-2"}, ids(items))

	require.NotNil(t, items[0].DistanceKm)
	require.Zero(t, *items[0].DistanceKm)
	for i := 1; i < 3; i++ {
		require.GreaterOrEqual(t, *items[i].DistanceKm, *items[i-1].DistanceKm)
	}
	require.Nil(t, items[3].DistanceKm)
	require.Nil(t, items[4].DistanceKm)
}

func TestSortByDistanceIsStableForTies(t *testing.T) {
	items := []app.FeedItem{
		feedItem("a", &lyon, 0),
		feedItem("b", &versailles, 0),
		feedItem("c", &lyon, 0),
		feedItem("d", &versailles, 0),
	}
	app.SortByDistance(items, paris)
	require.Equal(t, []string{"b", "d", "a", "c"}, ids(items))
}

func TestSortByPopularityAndSplit(t *testing.T) {
	items := []app.FeedItem{
		feedItem("a", nil, 1),
		feedItem("b", nil, 4),
		feedItem("c", nil, 1),
		feedItem("d", nil, 0),
		feedItem("e", nil, 4),
		feedItem("f", nil, 2),
		feedItem("g", nil, 7),
	}
	app.SortByPopularity(items)
	require.Equal(t, []string{"g", "b", "e", "f", "a", "c", "d"}, ids(items))

	popular, other := app.SplitPopular(items, app.PopularSectionSize)
	require.Equal(t, []string{"g", "b", "e", "f", "a"}, ids(popular))
	require.Equal(t, []string{"c", "d"}, ids(other))

	popular, other = app.SplitPopular(items[:3], app.PopularSectionSize)
	require.Len(t, popular, 3)
	require.Empty(t, other)

	popular, other = app.SplitPopular(nil, app.PopularSectionSize)
	require.Empty(t, popular)
	require.Empty(t, other)
}

func TestFeedService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	feeds := app.NewFeedService(f.store.Deals(), f.ratings, nil)

	far, err := f.deals.Create(ctx, app.CreateDealCommand{MerchantID: merchantID, Title: "Lyon", LocationCoords: &lyon})
	require.NoError(t, err)
	near, err := f.deals.Create(ctx, app.CreateDealCommand{MerchantID: "merchant-2", Title: "Paris", LocationCoords: &paris})
	require.NoError(t, err)
	closed, err := f.deals.Create(ctx, app.CreateDealCommand{MerchantID: merchantID, Title: "Fermé"})
	require.NoError(t, err)
	require.NoError(t, f.deals.Close(ctx, closed.ID, merchantID))

	for _, id := range []string{"influencer-1", "influencer-2"} {
		_, err := f.candidatures.Apply(ctx, app.ApplyCommand{DealID: far.ID, Influencer: domain.Author{ID: id}})
		require.NoError(t, err)
	}
	require.NoError(t, f.ratings.Record(ctx, domain.RoleMerchant, merchantID, 4))

	unsorted, err := feeds.Nearby(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, []string{far.ID, near.ID}, ids(unsorted))
	require.Nil(t, unsorted[0].DistanceKm)

	nearby, err := feeds.Nearby(ctx, &versailles)
	require.NoError(t, err)
	require.Equal(t, []string{near.ID, far.ID}, ids(nearby))
	require.Equal(t, 4, nearby[1].MerchantRating.Sum)
	require.Equal(t, 2, nearby[1].CandidatureCount)

	popular, err := feeds.Popular(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{far.ID, near.ID}, ids(popular.Popular))
	require.Empty(t, popular.Other)

	dashboard, err := feeds.MerchantDashboard(ctx, merchantID)
	require.NoError(t, err)
	require.Equal(t, 2, dashboard.TotalDeals)
	require.Equal(t, 1, dashboard.ActiveDeals)
	require.Equal(t, 2, dashboard.TotalCandidatures)
	require.Equal(t, 2, dashboard.StatusCounts[domain.StatusSubmitted])
	require.Equal(t, 4, dashboard.Rating.Sum)
	require.Equal(t, 2, dashboard.Deals[0].StatusCounts[domain.StatusSubmitted])
	require.Zero(t, dashboard.Deals[0].AwaitingApproval)
}
