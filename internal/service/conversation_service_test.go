package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversationRepo struct {
	conversations map[string]*domain.Conversation
	messages      map[string][]*domain.Message
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*domain.Conversation),
		messages:      make(map[string][]*domain.Message),
	}
}

func (f *fakeConversationRepo) GetOrCreateForUser(ctx context.Context, userID string) (*domain.Conversation, error) {
	if conv, ok := f.conversations[userID]; ok {
		return conv, nil
	}
	conv := &domain.Conversation{ID: fmt.Sprintf("conv-%d", len(f.conversations)+1), UserID: userID}
	f.conversations[userID] = conv
	return conv, nil
}

func (f *fakeConversationRepo) AppendMessage(ctx context.Context, msg *domain.Message) error {
	msg.ID = fmt.Sprintf("msg-%d", len(f.messages[msg.ConversationID])+1)
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], msg)
	return nil
}

func (f *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return f.messages[conversationID], nil
}

func (f *fakeConversationRepo) ClearMessages(ctx context.Context, conversationID string) error {
	f.messages[conversationID] = nil
	return nil
}

func TestConversationAppendAndTranscript(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo)

	msg, err := svc.Append(context.Background(), "u1", &dto.AppendMessageRequest{
		Role: domain.MessageRoleUser,
		Text: "I want to link my Square account",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	_, err = svc.Append(context.Background(), "u1", &dto.AppendMessageRequest{
		Role: domain.MessageRoleAgent,
		Text: "Sure, let's get that connected.",
	})
	require.NoError(t, err)

	conv, messages, err := svc.Transcript(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", conv.UserID)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.MessageRoleUser, messages[0].Role)
	assert.Equal(t, domain.MessageRoleAgent, messages[1].Role)
}

func TestConversationAppend_InvalidRole(t *testing.T) {
	svc := NewConversationService(newFakeConversationRepo())

	_, err := svc.Append(context.Background(), "u1", &dto.AppendMessageRequest{
		Role: "narrator",
		Text: "hello",
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestConversationClear(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo)

	_, err := svc.Append(context.Background(), "u1", &dto.AppendMessageRequest{
		Role: domain.MessageRoleUser,
		Text: "hello",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "u1"))

	_, messages, err := svc.Transcript(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
