package dto

import "time"

// ConversationMetadata is a conversation summary as the gateway lists it.
// The order of the list is server-defined; the client never reorders it.
type ConversationMetadata struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
	Preview   string    `json:"preview,omitempty"`
	Unread    int       `json:"unread,omitempty"`
}

// Thought is one step of the assistant's reasoning trace.
type Thought struct {
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail"`
}

// FileAttachment carries either a remote uri or inline base64 data.
type FileAttachment struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType"`
	Uri      string `json:"uri,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Location is the payload of map-type messages.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// ChatMessage is a single transcript entry. Id is client-generated (uuid)
// for user messages and server-assigned for assistant messages; unique
// within a conversation either way.
type ChatMessage struct {
	Id        string           `json:"id"`
	Message   string           `json:"message"`
	IsUser    bool             `json:"isUser"`
	Type      string           `json:"type"`
	Thoughts  []Thought        `json:"thoughts,omitempty"`
	Files     []FileAttachment `json:"files,omitempty"`
	BotFiles  []FileAttachment `json:"botFiles,omitempty"`
	Location  *Location        `json:"location,omitempty"`
	CreatedAt time.Time        `json:"createdAt,omitempty"`
}

// LoadingState is the transient progress indicator for the active request.
type LoadingState struct {
	IsLoading bool   `json:"isLoading"`
	Step      string `json:"step,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ConfirmSendEmailAction is a pending human-confirmation record. It exists
// from the moment the gateway asks for confirmation until the dialog
// resolves (confirm, cancel, local timeout, or server result).
type ConfirmSendEmailAction struct {
	ConfirmationId string `json:"confirmationId"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	RequestType    string `json:"requestType"`
	TimeoutMs      int    `json:"timeoutMs"`
}
