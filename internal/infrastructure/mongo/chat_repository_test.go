package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

func duplicateKeyReply() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.chats index: _id_",
	})
}

func countReply(ns string, n int) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestAppendMessageIsKeyedAndUpserted(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	threadID := domain.ThreadID("merchant-1", "influencer-1")
	participants := []string{"merchant-1", "influencer-1"}
	msg := domain.Message{
		ID:        "msg-1",
		SenderID:  "merchant-1",
		Text:      "Bienvenue",
		Key:       "welcome:deal-1",
		CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	mt.Run("first write", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		mt.AddMockResponses(updateReply(1))

		appended, err := repo.AppendMessage(ctx, threadID, participants, msg)
		require.NoError(mt, err)
		require.True(mt, appended)

		stmt := updateStatements(mt)[0]
		require.Equal(mt, threadID, stmt.Lookup("q", "_id").StringValue())
		require.Equal(mt, "welcome:deal-1", stmt.Lookup("q", "messages.key", "$ne").StringValue())
		require.True(mt, stmt.Lookup("upsert").Boolean())
		require.Equal(mt, "welcome:deal-1", stmt.Lookup("u", "$push", "messages", "key").StringValue())
		require.Equal(mt, "merchant-1", stmt.Lookup("u", "$setOnInsert", "participants", "0").StringValue())
	})

	mt.Run("unkeyed message has no key guard", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		mt.AddMockResponses(updateReply(1))

		plain := msg
		plain.Key = ""
		appended, err := repo.AppendMessage(ctx, threadID, participants, plain)
		require.NoError(mt, err)
		require.True(mt, appended)

		_, err = updateStatements(mt)[0].Lookup("q").Document().LookupErr("messages.key")
		require.Error(mt, err)
	})

	mt.Run("key already in the thread", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		// the guarded filter misses, so the upsert collides with the existing _id
		mt.AddMockResponses(duplicateKeyReply(), countReply("test.chats", 1))

		appended, err := repo.AppendMessage(ctx, threadID, participants, msg)
		require.NoError(mt, err)
		require.False(mt, appended)
		require.Equal(mt, []string{"update", "aggregate"}, commandNames(mt))
	})

	mt.Run("thread created concurrently", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		mt.AddMockResponses(duplicateKeyReply(), countReply("test.chats", 0), updateReply(1))

		appended, err := repo.AppendMessage(ctx, threadID, participants, msg)
		require.NoError(mt, err)
		require.True(mt, appended)
		require.Equal(mt, []string{"update", "aggregate", "update"}, commandNames(mt))
	})

	mt.Run("gives up after repeated collisions", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		for i := 0; i < upsertAttempts; i++ {
			mt.AddMockResponses(duplicateKeyReply(), countReply("test.chats", 0))
		}

		_, err := repo.AppendMessage(ctx, threadID, participants, msg)
		require.ErrorIs(mt, err, domain.ErrConflict)
		require.Len(mt, updateStatements(mt), upsertAttempts)
	})
}

func TestUpsertSummaryNeverDuplicatesChat(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	summary := domain.ChatSummary{
		ChatID:      domain.ThreadID("merchant-1", "influencer-1"),
		ReceiverID:  "influencer-1",
		LastMessage: "Bienvenue",
		UpdatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	mt.Run("replaces the existing entry", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		mt.AddMockResponses(updateReply(1))
		require.NoError(mt, repo.UpsertSummary(ctx, "merchant-1", summary))

		stmts := updateStatements(mt)
		require.Len(mt, stmts, 1)
		require.Equal(mt, summary.ChatID, stmts[0].Lookup("q", "chats.chatId").StringValue())
		require.Equal(mt, "Bienvenue", stmts[0].Lookup("u", "$set", "chats.$", "lastMessage").StringValue())
	})

	mt.Run("appends when absent", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		mt.AddMockResponses(updateReply(0), updateReply(1))
		require.NoError(mt, repo.UpsertSummary(ctx, "merchant-1", summary))

		stmts := updateStatements(mt)
		require.Len(mt, stmts, 2)
		push := stmts[1]
		require.Equal(mt, "merchant-1", push.Lookup("q", "_id").StringValue())
		require.Equal(mt, summary.ChatID, push.Lookup("q", "chats.chatId", "$ne").StringValue())
		require.True(mt, push.Lookup("upsert").Boolean())
		require.Equal(mt, "influencer-1", push.Lookup("u", "$push", "chats", "receiverId").StringValue())
	})

	mt.Run("retries after a concurrent append", func(mt *mtest.T) {
		repo := NewChatRepository(mt.DB, "chats", "userchats")
		// a racing writer pushed the same chat between the two updates
		mt.AddMockResponses(updateReply(0), duplicateKeyReply(), updateReply(1))
		require.NoError(mt, repo.UpsertSummary(ctx, "merchant-1", summary))

		stmts := updateStatements(mt)
		require.Len(mt, stmts, 3)
		_, err := stmts[2].Lookup("u").Document().LookupErr("$set")
		require.NoError(mt, err)
	})
}
