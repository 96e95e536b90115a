package session

import (
	"context"
	"errors"
	"strings"

	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrNotConnected        = errors.New("not connected to gateway")
	ErrUnknownConversation = errors.New("conversation id not in server list")
)

// Emitter is the outbound side of the socket connection. Implemented by
// *socket.Client.
type Emitter interface {
	Emit(event string, payload interface{}) error
	IsConnected() bool
}

// Hooks let a front end react to state changes. Every field is optional.
type Hooks struct {
	OnTranscriptChange    func()
	OnConversationsChange func()
	OnLoadingChange       func(dto.LoadingState)
	OnConnectionChange    func(connected bool)
	OnConfirmationRequest func(dto.ConfirmSendEmailAction)
	OnConfirmationTick    func(remaining int)
	OnConfirmationClosed  func()
}

// Manager coordinates the conversation store, the message store and the
// email-confirmation record, and is the single EventHandler for inbound
// gateway events. UI code calls actions here and renders from the store
// snapshots; it never mutates state directly.
type Manager struct {
	conversations *ConversationStore
	messages      *MessageStore
	confirmation  *EmailConfirmation
	emitter       Emitter
	logger        logger.ILogger
	validate      *validator.Validate
	hooks         Hooks
	ctx           context.Context
	newId         func() string
}

// NewManager builds the session state containers. ctx bounds every
// background countdown; pass nil newTicker outside tests. The emitter is
// attached separately because the socket client needs the manager as its
// handler first.
func NewManager(ctx context.Context, log logger.ILogger, hooks Hooks, newTicker TickerFactory) *Manager {
	m := &Manager{
		conversations: NewConversationStore(),
		messages:      NewMessageStore(),
		logger:        log,
		validate:      validator.New(),
		hooks:         hooks,
		ctx:           ctx,
		newId:         func() string { return uuid.New().String() },
	}
	m.confirmation = NewEmailConfirmation(newTicker, m.confirmationTick, m.confirmationTimeout)
	return m
}

func (m *Manager) AttachEmitter(e Emitter) {
	m.emitter = e
}

// --- snapshots for rendering ---

func (m *Manager) Conversations() []dto.ConversationMetadata { return m.conversations.List() }
func (m *Manager) ActiveConversation() string                { return m.conversations.Active() }
func (m *Manager) Messages() []dto.ChatMessage               { return m.messages.Messages() }
func (m *Manager) HistoryLoaded() bool                       { return m.messages.HistoryLoaded() }
func (m *Manager) Loading() dto.LoadingState                 { return m.messages.Loading() }
func (m *Manager) EditingMessageId() string                  { return m.messages.EditingMessageId() }
func (m *Manager) PendingConfirmation() (dto.ConfirmSendEmailAction, bool) {
	return m.confirmation.Pending()
}

func (m *Manager) IsConnected() bool {
	return m.emitter != nil && m.emitter.IsConnected()
}

// --- actions ---

// SendMessage emits the outbound send event. Blank text and a dead
// connection are rejected before anything goes on the wire; there is no
// optimistic local append, the transcript follows gateway events only.
func (m *Manager) SendMessage(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if !m.IsConnected() {
		return ErrNotConnected
	}

	req := dto.SendMessageRequest{
		ConversationId: m.conversations.Active(),
		MessageId:      m.newId(),
		Message:        trimmed,
	}
	if err := m.validate.Struct(req); err != nil {
		return err
	}
	return m.emitter.Emit(constant.EventSendMessage, req)
}

func (m *Manager) StartEdit(id string) error {
	if err := m.messages.StartEdit(id); err != nil {
		m.logger.Warn("Session", "Edit request rejected", map[string]interface{}{
			"message_id": id,
			"reason":     err.Error(),
		})
		return err
	}
	return nil
}

func (m *Manager) CancelEdit() {
	m.messages.CancelEdit()
}

// SubmitEditedMessage emits an edit for the latest user message. The text
// is replaced in place only when the gateway confirms.
func (m *Manager) SubmitEditedMessage(id, newText string) error {
	trimmed := strings.TrimSpace(newText)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	latest, ok := m.messages.LatestUserMessage()
	if !ok || latest.Id != id {
		return ErrNotLatestUserMessage
	}
	if !m.IsConnected() {
		return ErrNotConnected
	}

	req := dto.SubmitEditedMessageRequest{
		ConversationId: m.conversations.Active(),
		MessageId:      id,
		Message:        trimmed,
	}
	if err := m.validate.Struct(req); err != nil {
		return err
	}
	return m.emitter.Emit(constant.EventSubmitEditedMessage, req)
}

// NewConversation puts the client in the blank-slate state. The gateway
// assigns the conversation id on the first send and confirms it via
// new_conversation_started.
func (m *Manager) NewConversation() {
	m.messages.Reset(true)
	m.conversations.SetActive("")
	m.notifyTranscript()
	m.notifyLoading()
}

// SwitchConversation activates a server-confirmed conversation and asks
// the gateway for its history.
func (m *Manager) SwitchConversation(id string) error {
	if id == m.conversations.Active() {
		return nil
	}
	if !m.conversations.Known(id) {
		return ErrUnknownConversation
	}
	if !m.IsConnected() {
		return ErrNotConnected
	}

	m.messages.Reset(false)
	m.conversations.SetActive(id)
	m.notifyTranscript()
	return m.emitter.Emit(constant.EventSwitchConversation, dto.SwitchConversationRequest{ConversationId: id})
}

func (m *Manager) DeleteConversation(id string) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	req := dto.DeleteConversationRequest{ConversationId: id}
	if err := m.validate.Struct(req); err != nil {
		return err
	}
	if err := m.emitter.Emit(constant.EventDeleteConversation, req); err != nil {
		return err
	}

	if id == m.conversations.Active() {
		m.messages.Reset(true)
		m.conversations.SetActive("")
		m.notifyTranscript()
	}
	return m.emitter.Emit(constant.EventGetConversationList, nil)
}

func (m *Manager) RefreshConversations() error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return m.emitter.Emit(constant.EventGetConversationList, nil)
}

// ConfirmEmailAction resolves the pending dialog by user choice. The
// dialog closes immediately; the outcome message is appended only when
// the gateway pushes the result event.
func (m *Manager) ConfirmEmailAction() error {
	return m.resolveEmailAction(constant.EventConfirmEmailAction)
}

func (m *Manager) CancelEmailAction() error {
	return m.resolveEmailAction(constant.EventCancelEmailAction)
}

func (m *Manager) resolveEmailAction(event string) error {
	action, ok := m.confirmation.Dismiss()
	if !ok {
		return ErrNoPendingConfirmation
	}
	m.notifyConfirmationClosed()

	if !m.IsConnected() {
		return ErrNotConnected
	}
	return m.emitter.Emit(event, dto.EmailActionRequest{ConfirmationId: action.ConfirmationId})
}

// --- inbound event handlers (socket.EventHandler) ---

func (m *Manager) HandleConversationList(payload dto.ConversationListPayload) {
	m.conversations.ApplyList(payload.Conversations)
	if m.hooks.OnConversationsChange != nil {
		m.hooks.OnConversationsChange()
	}
}

func (m *Manager) HandleInitialHistory(payload dto.InitialHistoryPayload) {
	if payload.ConversationId != m.conversations.Active() {
		// History for a conversation we already switched away from.
		m.logger.Warn("Session", "Stale initial history dropped", map[string]interface{}{
			"conversation_id": payload.ConversationId,
			"active":          m.conversations.Active(),
		})
		return
	}
	m.messages.ApplyInitialHistory(payload.Messages)
	m.notifyTranscript()
}

func (m *Manager) HandleNewConversationStarted(payload dto.NewConversationStartedPayload) {
	m.conversations.SetActive(payload.ConversationId)
	m.messages.Reset(false)
	m.notifyTranscript()

	if m.emitter == nil {
		return
	}
	if err := m.emitter.Emit(constant.EventGetConversationList, nil); err != nil {
		m.logger.Warn("Session", "Conversation list refresh failed", map[string]interface{}{"error": err.Error()})
	}
}

func (m *Manager) HandleChatResponse(msg dto.ChatMessage) {
	m.messages.Append(msg)
	m.messages.ClearLoading()
	m.notifyTranscript()
	m.notifyLoading()
}

func (m *Manager) HandleChatResponseChunk(chunk dto.ChatResponseChunkPayload) {
	m.messages.ApplyChunk(chunk)
	if chunk.Done {
		m.messages.ClearLoading()
		m.notifyLoading()
	}
	m.notifyTranscript()
}

func (m *Manager) HandleEditMessageConfirmed(payload dto.EditMessageConfirmedPayload) {
	if err := m.messages.ApplyEditConfirmed(payload.MessageId, payload.Message); err != nil {
		m.logger.Warn("Session", "Edit confirmation for unknown message", map[string]interface{}{
			"message_id": payload.MessageId,
		})
		return
	}
	m.notifyTranscript()
}

func (m *Manager) HandleLoadingStep(payload dto.LoadingStepPayload) {
	m.messages.SetLoading(dto.LoadingState{
		IsLoading: !isTerminalStep(payload.Step),
		Step:      payload.Step,
		Message:   payload.Message,
	})
	m.notifyLoading()
}

func (m *Manager) HandleConfirmSendEmail(action dto.ConfirmSendEmailAction) {
	m.confirmation.Begin(m.ctx, action)
	if m.hooks.OnConfirmationRequest != nil {
		m.hooks.OnConfirmationRequest(action)
	}
}

// HandleSendEmailResult appends the outcome to the transcript and clears
// the loading indicator no matter what; the dialog is only closed when the
// confirmationId matches the pending one, so a stale result cannot dismiss
// a newer confirmation.
func (m *Manager) HandleSendEmailResult(result dto.SendEmailResultPayload) {
	if m.confirmation.Resolve(result.ConfirmationId) {
		m.notifyConfirmationClosed()
	}

	msgType := constant.MessageTypeText
	if result.Status != constant.EmailResultSuccess {
		msgType = constant.MessageTypeWarning
	}
	m.messages.Append(dto.ChatMessage{
		Id:      m.newId(),
		Message: result.Message,
		IsUser:  false,
		Type:    msgType,
	})
	m.messages.ClearLoading()
	m.notifyTranscript()
	m.notifyLoading()
}

func (m *Manager) HandleConnectionChange(connected bool) {
	m.logger.Info("Session", "Connection state changed", map[string]interface{}{"connected": connected})
	if m.hooks.OnConnectionChange != nil {
		m.hooks.OnConnectionChange(connected)
	}
}

// --- confirmation callbacks ---

func (m *Manager) confirmationTick(remaining int) {
	if m.hooks.OnConfirmationTick != nil {
		m.hooks.OnConfirmationTick(remaining)
	}
}

// confirmationTimeout dismisses the dialog locally. No cancel event goes
// out; the gateway runs its own timeout.
func (m *Manager) confirmationTimeout(action dto.ConfirmSendEmailAction) {
	m.logger.Info("Session", "Email confirmation timed out locally", map[string]interface{}{
		"confirmation_id": action.ConfirmationId,
	})
	m.notifyConfirmationClosed()
}

func (m *Manager) notifyTranscript() {
	if m.hooks.OnTranscriptChange != nil {
		m.hooks.OnTranscriptChange()
	}
}

func (m *Manager) notifyLoading() {
	if m.hooks.OnLoadingChange != nil {
		m.hooks.OnLoadingChange(m.messages.Loading())
	}
}

func (m *Manager) notifyConfirmationClosed() {
	if m.hooks.OnConfirmationClosed != nil {
		m.hooks.OnConfirmationClosed()
	}
}

func isTerminalStep(step string) bool {
	switch step {
	case constant.LoadingStepHistoryLoaded, constant.LoadingStepNewChatReady, constant.LoadingStepEmailSuccess:
		return true
	}
	return false
}
