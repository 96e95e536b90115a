package socket

import (
	"encoding/json"

	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/pkg/logger"
)

// EventHandler receives every inbound gateway event, one method per event
// name. The dispatcher decodes the payload before calling, so adding an
// event means adding a constant, a payload type, a method here, and a case
// below — anything missed fails to compile.
type EventHandler interface {
	HandleConversationList(payload dto.ConversationListPayload)
	HandleInitialHistory(payload dto.InitialHistoryPayload)
	HandleNewConversationStarted(payload dto.NewConversationStartedPayload)
	HandleChatResponse(msg dto.ChatMessage)
	HandleChatResponseChunk(chunk dto.ChatResponseChunkPayload)
	HandleEditMessageConfirmed(payload dto.EditMessageConfirmedPayload)
	HandleLoadingStep(payload dto.LoadingStepPayload)
	HandleConfirmSendEmail(action dto.ConfirmSendEmailAction)
	HandleSendEmailResult(result dto.SendEmailResultPayload)

	// HandleConnectionChange is a client-local signal, not a wire event.
	HandleConnectionChange(connected bool)
}

func dispatch(h EventHandler, log logger.ILogger, env Envelope) {
	switch env.Event {
	case constant.EventConversationList:
		decode(log, env, h.HandleConversationList)
	case constant.EventInitialHistory:
		decode(log, env, h.HandleInitialHistory)
	case constant.EventNewConversationStarted:
		decode(log, env, h.HandleNewConversationStarted)
	case constant.EventChatResponse:
		decode(log, env, h.HandleChatResponse)
	case constant.EventChatResponseChunk:
		decode(log, env, h.HandleChatResponseChunk)
	case constant.EventEditMessageConfirmed:
		decode(log, env, h.HandleEditMessageConfirmed)
	case constant.EventLoadingStep:
		decode(log, env, h.HandleLoadingStep)
	case constant.EventConfirmSendEmail:
		decode(log, env, h.HandleConfirmSendEmail)
	case constant.EventSendEmailResult:
		decode(log, env, h.HandleSendEmailResult)
	default:
		log.Warn("Socket", "Unknown event dropped", map[string]interface{}{"event": env.Event})
	}
}

func decode[T any](log logger.ILogger, env Envelope, handle func(T)) {
	var payload T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			log.Warn("Socket", "Undecodable payload dropped", map[string]interface{}{
				"event": env.Event,
				"error": err.Error(),
			})
			return
		}
	}
	handle(payload)
}
