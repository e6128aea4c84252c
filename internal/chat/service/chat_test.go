package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/chat/repo"
	"github.com/quanghuy/freshmart/internal/models"
)

func newTestService(t *testing.T) (*ChatService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Conversation{}, &models.Message{}))

	return &ChatService{Repo: &repo.GormRepo{DB: db}}, db
}

func TestChatService_CreateConversation_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateConversation(ctx, "   ")
	require.ErrorIs(t, err, ErrValidation)

	conv, err := svc.CreateConversation(ctx, "alice,bob")
	require.NoError(t, err)
	assert.Equal(t, "alice,bob", conv.Participants)
}

func TestChatService_SendMessage_OrderedListing(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "alice,bob")
	require.NoError(t, err)

	first, err := svc.SendMessage(ctx, conv.ID, "alice", "hi")
	require.NoError(t, err)
	second, err := svc.SendMessage(ctx, conv.ID, "bob", "hello")
	require.NoError(t, err)

	total, msgs, err := svc.ListMessages(ctx, conv.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
}

func TestChatService_SendMessage_Rejections(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, conv.ID, "", "hi")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(ctx, conv.ID, "alice", "  ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendMessage(ctx, uuid.New(), "alice", "hi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChatService_DeleteConversation_CascadesMessages(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "alice,bob")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, conv.ID, "alice", "hi")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, conv.ID))

	var msgs int64
	require.NoError(t, db.Model(&models.Message{}).Count(&msgs).Error)
	assert.Zero(t, msgs)

	require.ErrorIs(t, svc.DeleteConversation(ctx, conv.ID), ErrNotFound)
}
