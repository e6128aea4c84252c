package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/chat/repo"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/mykafka"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

type ChatService struct {
	Repo     *repo.GormRepo
	Producer mykafka.Publisher
}

func (s *ChatService) CreateConversation(ctx context.Context, participants string) (*models.Conversation, error) {
	participants = strings.TrimSpace(participants)
	if participants == "" {
		return nil, fmt.Errorf("%w: participants must not be empty", ErrValidation)
	}

	conv := &models.Conversation{Participants: participants}
	if err := s.Repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.Repo.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, id)
		}
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) ListConversations(ctx context.Context, participant string, offset, limit int) (int64, []models.Conversation, error) {
	return s.Repo.ListConversations(ctx, participant, offset, limit)
}

func (s *ChatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: conversation %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (s *ChatService) SendMessage(ctx context.Context, conversationID uuid.UUID, sender, content string) (*models.Message, error) {
	if sender == "" {
		return nil, fmt.Errorf("%w: sender must not be empty", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		SentAt:         time.Now().UTC(),
	}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
		}
		return nil, err
	}

	if s.Producer != nil {
		event := map[string]any{
			"type":           "message_sent",
			"messageId":      msg.ID.String(),
			"conversationId": msg.ConversationID.String(),
			"sender":         msg.Sender,
		}
		if err := s.Producer.PublishEvent(ctx, mykafka.TopicChatEvents, msg.ConversationID.String(), event); err != nil {
			logging.FromContext(ctx).Warn("publish_chat_event_failed", "error", err)
		}
	}
	return msg, nil
}

func (s *ChatService) ListMessages(ctx context.Context, conversationID uuid.UUID, offset, limit int) (int64, []models.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return 0, nil, err
	}
	return s.Repo.ListMessages(ctx, conversationID, offset, limit)
}

func (s *ChatService) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}
