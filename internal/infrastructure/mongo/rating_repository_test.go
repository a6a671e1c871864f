package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

func TestRatingIncrementReturnsUpdatedAggregate(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("upserts the role keyed document", func(mt *mtest.T) {
		repo := NewRatingRepository(mt.DB, "ratings")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "influencer:u1"},
			{Key: "userId", Value: "u1"},
			{Key: "role", Value: "influencer"},
			{Key: "sum", Value: 9},
			{Key: "count", Value: 2},
		}}))

		agg, err := repo.Increment(ctx, domain.RoleInfluencer, "u1", 4)
		require.NoError(mt, err)
		require.Equal(mt, domain.RatingAggregate{UserID: "u1", Role: domain.RoleInfluencer, Sum: 9, Count: 2}, agg)

		evt := mt.GetStartedEvent()
		require.Equal(mt, "findAndModify", evt.CommandName)
		cmd := evt.Command
		require.Equal(mt, "influencer:u1", cmd.Lookup("query", "_id").StringValue())
		require.True(mt, cmd.Lookup("upsert").Boolean())
		require.True(mt, cmd.Lookup("new").Boolean())
		require.Equal(mt, int32(4), cmd.Lookup("update", "$inc", "sum").Int32())
		require.Equal(mt, int32(1), cmd.Lookup("update", "$inc", "count").Int32())
		require.Equal(mt, "influencer", cmd.Lookup("update", "$setOnInsert", "role").StringValue())
	})

	mt.Run("missing aggregate reads as zero", func(mt *mtest.T) {
		repo := NewRatingRepository(mt.DB, "ratings")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.ratings", mtest.FirstBatch))

		agg, err := repo.Find(ctx, domain.RoleMerchant, "u1")
		require.NoError(mt, err)
		require.Equal(mt, domain.RatingAggregate{UserID: "u1", Role: domain.RoleMerchant}, agg)
		require.Equal(mt, "merchant:u1", mt.GetStartedEvent().Command.Lookup("filter", "_id").StringValue())
	})
}
