package services

import (
	"context"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/repositories"
)

type IChatService interface {
	PostMessage(ctx context.Context, sub domain.Submission) (domain.Message, error)
	History() ([]domain.Message, error)
	Search(ctx context.Context, terms string, limit int) ([]domain.Message, error)
	Join(sessionID string, sink contract.EventSink) ([]domain.Message, error)
	Leave(sessionID string)
}

// ChatService is the single entry point for the transport layers. It hides
// the router and the repositories behind one interface so WebSocket and
// HTTP handlers stay free of coordination logic.
type ChatService struct {
	router     contract.IRouter
	repository repositories.IMessageRepository
	index      repositories.IMessageIndex
}

func NewChatService(router contract.IRouter,
	repository repositories.IMessageRepository, index repositories.IMessageIndex) *ChatService {
	return &ChatService{router: router, repository: repository, index: index}
}

func (s *ChatService) PostMessage(ctx context.Context, sub domain.Submission) (domain.Message, error) {
	return s.router.HandleIncoming(ctx, sub)
}

func (s *ChatService) History() ([]domain.Message, error) {
	return s.repository.ListAll()
}

// Search resolves index hits back through the store. A key the store no
// longer knows is skipped rather than failing the whole query.
func (s *ChatService) Search(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return nil, nil
	}
	keys, err := s.index.Search(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(keys))
	for _, key := range keys {
		message, err := s.repository.Get(key)
		if err != nil {
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *ChatService) Join(sessionID string, sink contract.EventSink) ([]domain.Message, error) {
	return s.router.Attach(sessionID, sink)
}

func (s *ChatService) Leave(sessionID string) {
	s.router.Detach(sessionID)
}
