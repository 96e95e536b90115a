package dto

// Payloads for the gateway event protocol. Inbound payloads are decoded by
// the socket dispatcher; outbound ones are validated before emit.

type ConversationListPayload struct {
	Conversations []ConversationMetadata `json:"conversations"`
}

type InitialHistoryPayload struct {
	ConversationId string        `json:"conversationId"`
	Messages       []ChatMessage `json:"messages"`
}

type NewConversationStartedPayload struct {
	ConversationId string `json:"conversationId"`
}

// ChatResponseChunkPayload is one streamed fragment of an assistant reply.
// Delta extends the message body; Thought, when present, appends one step
// to the reasoning trace. Done marks the final chunk.
type ChatResponseChunkPayload struct {
	MessageId string   `json:"messageId"`
	Delta     string   `json:"delta"`
	Thought   *Thought `json:"thought,omitempty"`
	Done      bool     `json:"done,omitempty"`
}

type EditMessageConfirmedPayload struct {
	MessageId string `json:"messageId"`
	Message   string `json:"message"`
}

type LoadingStepPayload struct {
	Step    string `json:"step"`
	Message string `json:"message,omitempty"`
}

type SendEmailResultPayload struct {
	ConfirmationId string `json:"confirmationId"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// --- Outbound requests ---

type SendMessageRequest struct {
	ConversationId string `json:"conversationId,omitempty"`
	MessageId      string `json:"messageId" validate:"required"`
	Message        string `json:"message" validate:"required"`
}

type SubmitEditedMessageRequest struct {
	ConversationId string `json:"conversationId" validate:"required"`
	MessageId      string `json:"messageId" validate:"required"`
	Message        string `json:"message" validate:"required"`
}

type SwitchConversationRequest struct {
	ConversationId string `json:"conversationId" validate:"required"`
}

type DeleteConversationRequest struct {
	ConversationId string `json:"conversationId" validate:"required"`
}

type EmailActionRequest struct {
	ConfirmationId string `json:"confirmationId" validate:"required"`
}
