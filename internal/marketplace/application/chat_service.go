package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

const maxMessageRunes = 2000

type chatService struct {
	repo   ChatRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewChatService builds the chat bootstrapper over repo.
func NewChatService(repo ChatRepository, logger *zap.Logger) ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatService{
		repo:   repo,
		logger: logger.Named("chat"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Bootstrap appends the message then upserts both inbox summaries, initiator first.
// The two summary writes are independent; a failure on the second leaves the first in place.
func (s *chatService) Bootstrap(ctx context.Context, cmd BootstrapCommand) error {
	_, err := s.post(ctx, cmd)
	return err
}

func (s *chatService) Send(ctx context.Context, senderID, receiverID, text string) (*domain.Message, error) {
	return s.post(ctx, BootstrapCommand{InitiatorID: senderID, CounterpartID: receiverID, Text: text})
}

func (s *chatService) post(ctx context.Context, cmd BootstrapCommand) (*domain.Message, error) {
	initiator := strings.TrimSpace(cmd.InitiatorID)
	counterpart := strings.TrimSpace(cmd.CounterpartID)
	if initiator == "" || counterpart == "" {
		return nil, domain.NewValidationError("participants", "deux participants sont requis")
	}
	if initiator == counterpart {
		return nil, domain.NewValidationError("participants", "impossible de s'écrire à soi-même")
	}
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, domain.NewValidationError("text", "message vide")
	}
	if len([]rune(text)) > maxMessageRunes {
		return nil, domain.NewValidationError("text", fmt.Sprintf("message limité à %d caractères", maxMessageRunes))
	}

	threadID := domain.ThreadID(initiator, counterpart)
	now := s.now()
	msg := domain.Message{
		ID:        uuid.NewString(),
		SenderID:  initiator,
		Text:      text,
		Key:       cmd.Key,
		CreatedAt: now,
	}

	appended, err := s.repo.AppendMessage(ctx, threadID, participants(initiator, counterpart), msg)
	if err != nil {
		return nil, fmt.Errorf("append message to %s: %w", threadID, err)
	}
	if !appended {
		s.logger.Debug("opening message already present", zap.String("threadId", threadID), zap.String("key", cmd.Key))
		return &msg, nil
	}

	if err := s.repo.UpsertSummary(ctx, initiator, domain.ChatSummary{
		ChatID:      threadID,
		ReceiverID:  counterpart,
		LastMessage: text,
		UpdatedAt:   now,
		Read:        true,
	}); err != nil {
		return nil, fmt.Errorf("upsert summary of %s: %w", initiator, err)
	}
	if err := s.repo.UpsertSummary(ctx, counterpart, domain.ChatSummary{
		ChatID:      threadID,
		ReceiverID:  initiator,
		LastMessage: text,
		UpdatedAt:   now,
		Read:        false,
	}); err != nil {
		return nil, fmt.Errorf("upsert summary of %s: %w", counterpart, err)
	}
	return &msg, nil
}

// Summaries returns the inbox most recent first.
func (s *chatService) Summaries(ctx context.Context, userID string) ([]domain.ChatSummary, error) {
	summaries, err := s.repo.FindSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (s *chatService) Thread(ctx context.Context, userID, threadID string) (*domain.Thread, error) {
	thread, err := s.repo.FindThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, domain.ErrForbidden
	}
	return thread, nil
}

func (s *chatService) MarkThreadRead(ctx context.Context, userID, threadID string) error {
	return s.repo.MarkSummaryRead(ctx, userID, threadID)
}

func participants(a, b string) []string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids
}
