package service

import (
	"context"
	"fmt"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/repository"
)

// ConversationService manages the single onboarding transcript per user.
type ConversationService interface {
	Transcript(ctx context.Context, userID string) (*domain.Conversation, []*domain.Message, error)
	Append(ctx context.Context, userID string, req *dto.AppendMessageRequest) (*domain.Message, error)
	Clear(ctx context.Context, userID string) error
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
}

// NewConversationService creates a new conversation service
func NewConversationService(conversationRepo repository.ConversationRepository) ConversationService {
	return &conversationService{conversationRepo: conversationRepo}
}

// Transcript returns the user's onboarding conversation and its messages
func (s *conversationService) Transcript(ctx context.Context, userID string) (*domain.Conversation, []*domain.Message, error) {
	conv, err := s.conversationRepo.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	messages, err := s.conversationRepo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return conv, messages, nil
}

// Append adds one transcript entry
func (s *conversationService) Append(ctx context.Context, userID string, req *dto.AppendMessageRequest) (*domain.Message, error) {
	if !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown message role %q", ErrInvalidInput, req.Role)
	}

	conv, err := s.conversationRepo.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		Role:           req.Role,
		Text:           req.Text,
		RawPayload:     req.RawPayload,
	}

	if err := s.conversationRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

// Clear wipes the transcript
func (s *conversationService) Clear(ctx context.Context, userID string) error {
	conv, err := s.conversationRepo.GetOrCreateForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}

	if err := s.conversationRepo.ClearMessages(ctx, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	return nil
}
