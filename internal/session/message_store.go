package session

import (
	"errors"
	"sync"

	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"
)

var (
	ErrEmptyMessage          = errors.New("message text is empty")
	ErrEditInProgress        = errors.New("another message is already being edited")
	ErrNotLatestUserMessage  = errors.New("only the latest user message can be edited")
	ErrUnknownMessage        = errors.New("message id not found")
	ErrNoPendingConfirmation = errors.New("no email confirmation pending")
)

// MessageStore holds the ordered message list for the active conversation.
// Order is append-only except for the explicit edit-in-place on the latest
// user message. At most one message is in edit mode at a time; the lock is
// enforced here, not by caller convention.
type MessageStore struct {
	mu            sync.RWMutex
	messages      []dto.ChatMessage
	historyLoaded bool
	editing       string
	loading       dto.LoadingState
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) Messages() []dto.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]dto.ChatMessage, len(s.messages))
	copy(copied, s.messages)
	return copied
}

func (s *MessageStore) HistoryLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyLoaded
}

func (s *MessageStore) Loading() dto.LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *MessageStore) SetLoading(state dto.LoadingState) {
	s.mu.Lock()
	s.loading = state
	s.mu.Unlock()
}

func (s *MessageStore) ClearLoading() {
	s.mu.Lock()
	s.loading = dto.LoadingState{}
	s.mu.Unlock()
}

func (s *MessageStore) Append(msg dto.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// ApplyInitialHistory replaces the list wholesale with the gateway-provided
// ordered history. Safe to apply repeatedly for the same payload.
func (s *MessageStore) ApplyInitialHistory(messages []dto.ChatMessage) {
	copied := make([]dto.ChatMessage, len(messages))
	copy(copied, messages)

	s.mu.Lock()
	s.messages = copied
	s.historyLoaded = true
	s.mu.Unlock()
}

// Reset clears the message list and transient edit state, called on
// conversation switch or explicit new chat. clearAll additionally wipes
// the loading banner.
func (s *MessageStore) Reset(clearAll bool) {
	s.mu.Lock()
	s.messages = nil
	s.historyLoaded = false
	s.editing = ""
	if clearAll {
		s.loading = dto.LoadingState{}
	}
	s.mu.Unlock()
}

func (s *MessageStore) EditingMessageId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing
}

// StartEdit acquires the single-writer edit lock for id. Rejected when
// another edit is in progress or id is not the latest user message.
func (s *MessageStore) StartEdit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing != "" && s.editing != id {
		return ErrEditInProgress
	}
	latest, ok := s.latestUserMessageLocked()
	if !ok {
		return ErrUnknownMessage
	}
	if latest.Id != id {
		return ErrNotLatestUserMessage
	}
	s.editing = id
	return nil
}

func (s *MessageStore) CancelEdit() {
	s.mu.Lock()
	s.editing = ""
	s.mu.Unlock()
}

// LatestUserMessage returns the most recent user-authored message.
func (s *MessageStore) LatestUserMessage() (dto.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestUserMessageLocked()
}

func (s *MessageStore) latestUserMessageLocked() (dto.ChatMessage, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsUser {
			return s.messages[i], true
		}
	}
	return dto.ChatMessage{}, false
}

// ApplyEditConfirmed replaces the message text in place, preserving its
// position and id, and releases the edit lock for that id.
func (s *MessageStore) ApplyEditConfirmed(id, newText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].Id == id {
			s.messages[i].Message = newText
			if s.editing == id {
				s.editing = ""
			}
			return nil
		}
	}
	return ErrUnknownMessage
}

// ApplyChunk folds one streamed fragment into the in-flight assistant
// message, creating it on the first chunk.
func (s *MessageStore) ApplyChunk(chunk dto.ChatResponseChunkPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.messages); n > 0 {
		last := &s.messages[n-1]
		if !last.IsUser && last.Id == chunk.MessageId {
			last.Message += chunk.Delta
			if chunk.Thought != nil {
				last.Thoughts = append(last.Thoughts, *chunk.Thought)
			}
			return
		}
	}

	msg := dto.ChatMessage{
		Id:      chunk.MessageId,
		Message: chunk.Delta,
		IsUser:  false,
		Type:    constant.MessageTypeText,
	}
	if chunk.Thought != nil {
		msg.Thoughts = []dto.Thought{*chunk.Thought}
	}
	s.messages = append(s.messages, msg)
}
