package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return r.DB.WithContext(ctx).Create(conv).Error
}

func (r *GormRepo) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.DB.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *GormRepo) ListConversations(ctx context.Context, participant string, offset, limit int) (int64, []models.Conversation, error) {
	q := r.DB.WithContext(ctx).Model(&models.Conversation{})
	if participant != "" {
		q = q.Where("participants LIKE ?", "%"+participant+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var convs []models.Conversation
	if err := q.Order("updated_at DESC").Order("id ASC").
		Offset(offset).Limit(limit).Find(&convs).Error; err != nil {
		return 0, nil, err
	}
	return total, convs, nil
}

// DeleteConversation removes the conversation and its messages together.
func (r *GormRepo) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Conversation{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CreateMessage appends the message and bumps the conversation's
// updated_at so recently active conversations sort first.
func (r *GormRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, "id = ?", msg.ConversationID).Error; err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Update("updated_at", msg.SentAt).Error
	})
}

func (r *GormRepo) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := r.DB.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, offset, limit int) (int64, []models.Message, error) {
	q := r.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var msgs []models.Message
	if err := q.Order("sent_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).Find(&msgs).Error; err != nil {
		return 0, nil, err
	}
	return total, msgs, nil
}

func (r *GormRepo) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
