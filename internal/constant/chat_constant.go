package constant

// Inbound gateway events (gateway -> client)
const (
	EventConversationList       = "conversation_list"
	EventInitialHistory         = "initial_history"
	EventNewConversationStarted = "new_conversation_started"
	EventChatResponse           = "chat_response"
	EventChatResponseChunk      = "chat_response_chunk"
	EventEditMessageConfirmed   = "edit_message_confirmed"
	EventLoadingStep            = "loading_step"
	EventConfirmSendEmail       = "confirm_send_email"
	EventSendEmailResult        = "send_email_result"
)

// Outbound gateway events (client -> gateway)
const (
	EventSendMessage         = "send_message"
	EventSubmitEditedMessage = "submit_edited_message"
	EventGetConversationList = "get_conversation_list"
	EventSwitchConversation  = "switch_conversation"
	EventDeleteConversation  = "delete_conversation"
	EventConfirmEmailAction  = "confirm_email_action"
	EventCancelEmailAction   = "cancel_email_action"
)

// Message types rendered in the transcript
const (
	MessageTypeText         = "text"
	MessageTypeError        = "error"
	MessageTypeWarning      = "warning"
	MessageTypeMap          = "map"
	MessageTypeFollowUpdate = "follow_update"
)

// Loading steps pushed by the gateway while a request is in flight.
// Terminal steps clear the loading indicator, the rest keep it spinning.
const (
	LoadingStepThinking      = "thinking"
	LoadingStepSearching     = "searching"
	LoadingStepHistoryLoaded = "history_loaded"
	LoadingStepNewChatReady  = "new_chat_ready"
	LoadingStepEmailSuccess  = "email_success"
)

// Email confirmation result statuses
const (
	EmailResultSuccess = "success"
	EmailResultFailure = "failure"
)
