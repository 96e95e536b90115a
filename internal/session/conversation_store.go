package session

import (
	"sync"

	"confhub-chat-client/internal/dto"
)

// ConversationStore holds the conversation summaries and the active id.
// The active id is either "" (no conversation yet) or a value the gateway
// confirmed; callers never invent one.
type ConversationStore struct {
	mu     sync.RWMutex
	active string
	list   []dto.ConversationMetadata
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

func (s *ConversationStore) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *ConversationStore) SetActive(id string) {
	s.mu.Lock()
	s.active = id
	s.mu.Unlock()
}

// ApplyList replaces the stored list wholesale with the gateway's latest
// snapshot. No client-side merge or reordering.
func (s *ConversationStore) ApplyList(list []dto.ConversationMetadata) {
	copied := make([]dto.ConversationMetadata, len(list))
	copy(copied, list)

	s.mu.Lock()
	s.list = copied
	s.mu.Unlock()
}

func (s *ConversationStore) List() []dto.ConversationMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]dto.ConversationMetadata, len(s.list))
	copy(copied, s.list)
	return copied
}

// Known reports whether id appears in the current snapshot.
func (s *ConversationStore) Known(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.list {
		if c.Id == id {
			return true
		}
	}
	return false
}
