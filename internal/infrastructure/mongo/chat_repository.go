package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// upsert の競合 (同時に初回作成) に対する再試行回数。
const upsertAttempts = 3

// ChatRepository persists chats/{threadId} and userchats/{uid}.
type ChatRepository struct {
	chats     *mongo.Collection
	userChats *mongo.Collection
}

var _ application.ChatRepository = (*ChatRepository)(nil)

func NewChatRepository(db *mongo.Database, chatsCollection, userChatsCollection string) *ChatRepository {
	return &ChatRepository{
		chats:     db.Collection(chatsCollection),
		userChats: db.Collection(userChatsCollection),
	}
}

// AppendMessage pushes msg, creating the thread on first use. A keyed message is
// skipped when the thread already carries the same key.
func (r *ChatRepository) AppendMessage(ctx context.Context, threadID string, participants []string, msg domain.Message) (bool, error) {
	filter := bson.M{"_id": threadID}
	if msg.Key != "" {
		filter["messages.key"] = bson.M{"$ne": msg.Key}
	}
	update := bson.M{
		"$push": bson.M{"messages": MessageDocument{
			ID:        msg.ID,
			SenderID:  msg.SenderID,
			Text:      msg.Text,
			Key:       msg.Key,
			CreatedAt: msg.CreatedAt,
		}},
		"$setOnInsert": bson.M{"participants": participants},
	}
	opts := options.Update().SetUpsert(true)

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		_, err := r.chats.UpdateOne(ctx, filter, update, opts)
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}
		// 重複キー: キー付きメッセージが既にあるか、スレッドが同時に作成された。
		if msg.Key != "" {
			exists, err := r.hasMessageKey(ctx, threadID, msg.Key)
			if err != nil {
				return false, err
			}
			if exists {
				return false, nil
			}
		}
	}
	return false, fmt.Errorf("thread %s: %w", threadID, domain.ErrConflict)
}

func (r *ChatRepository) hasMessageKey(ctx context.Context, threadID, key string) (bool, error) {
	count, err := r.chats.CountDocuments(ctx, bson.M{"_id": threadID, "messages.key": key})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ChatRepository) FindThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var doc ChatDocument
	if err := r.chats.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, err
	}
	thread := mapChatDocument(doc)
	return &thread, nil
}

// UpsertSummary replaces the entry for summary.ChatID in place, or appends it.
// The array never holds two entries for the same chat.
func (r *ChatRepository) UpsertSummary(ctx context.Context, userID string, summary domain.ChatSummary) error {
	doc := toChatSummaryDocument(summary)
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		result, err := r.userChats.UpdateOne(ctx,
			bson.M{"_id": userID, "chats.chatId": summary.ChatID},
			bson.M{"$set": bson.M{"chats.$": doc}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount > 0 {
			return nil
		}

		result, err = r.userChats.UpdateOne(ctx,
			bson.M{"_id": userID, "chats.chatId": bson.M{"$ne": summary.ChatID}},
			bson.M{"$push": bson.M{"chats": doc}},
			options.Update().SetUpsert(true),
		)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return fmt.Errorf("userchats %s: %w", userID, domain.ErrConflict)
}

func (r *ChatRepository) FindSummaries(ctx context.Context, userID string) ([]domain.ChatSummary, error) {
	var doc UserChatsDocument
	if err := r.userChats.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.ChatSummary{}, nil
		}
		return nil, err
	}
	result := make([]domain.ChatSummary, 0, len(doc.Chats))
	for _, c := range doc.Chats {
		result = append(result, mapChatSummaryDocument(c))
	}
	return result, nil
}

func (r *ChatRepository) MarkSummaryRead(ctx context.Context, userID, threadID string) error {
	result, err := r.userChats.UpdateOne(ctx,
		bson.M{"_id": userID, "chats.chatId": threadID},
		bson.M{"$set": bson.M{"chats.$.read": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("chat %s: %w", threadID, domain.ErrNotFound)
	}
	return nil
}
