package integration

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stubSecret = "integration-test-secret"

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// stubGateway is a minimal in-process stand-in for the chat backend: JWT
// auth on upgrade, then the event protocol over the socket. One goroutine
// per connection owns both reads and writes, so replies are sequential.
type stubGateway struct {
	app  *fiber.App
	addr string

	mu            sync.Mutex
	conversations []dto.ConversationMetadata
	history       map[string][]dto.ChatMessage
}

func startStubGateway(t *testing.T) *stubGateway {
	t.Helper()

	gw := &stubGateway{
		history: make(map[string][]dto.ChatMessage),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		authHeader := c.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}
		tok, err := jwt.Parse(authHeader[7:], func(t *jwt.Token) (interface{}, error) {
			return []byte(stubSecret), nil
		})
		if err != nil || !tok.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		return c.Next()
	})

	app.Get("/ws/chat", websocket.New(gw.serve))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gw.app = app
	gw.addr = ln.Addr().String()

	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	return gw
}

func (g *stubGateway) wsURL() string {
	return fmt.Sprintf("ws://%s/ws/chat", g.addr)
}

func (g *stubGateway) serve(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Event {
		case constant.EventGetConversationList:
			g.sendConversationList(conn)

		case constant.EventSendMessage:
			var req dto.SendMessageRequest
			json.Unmarshal(env.Data, &req)
			g.handleSend(conn, req)

		case constant.EventSwitchConversation:
			var req dto.SwitchConversationRequest
			json.Unmarshal(env.Data, &req)
			g.mu.Lock()
			msgs := append([]dto.ChatMessage(nil), g.history[req.ConversationId]...)
			g.mu.Unlock()
			send(conn, constant.EventInitialHistory, dto.InitialHistoryPayload{
				ConversationId: req.ConversationId,
				Messages:       msgs,
			})
			send(conn, constant.EventLoadingStep, dto.LoadingStepPayload{Step: constant.LoadingStepHistoryLoaded})

		case constant.EventSubmitEditedMessage:
			var req dto.SubmitEditedMessageRequest
			json.Unmarshal(env.Data, &req)
			g.mu.Lock()
			for i, m := range g.history[req.ConversationId] {
				if m.Id == req.MessageId {
					g.history[req.ConversationId][i].Message = req.Message
				}
			}
			g.mu.Unlock()
			send(conn, constant.EventEditMessageConfirmed, dto.EditMessageConfirmedPayload{
				MessageId: req.MessageId,
				Message:   req.Message,
			})

		case constant.EventDeleteConversation:
			var req dto.DeleteConversationRequest
			json.Unmarshal(env.Data, &req)
			g.mu.Lock()
			kept := g.conversations[:0]
			for _, c := range g.conversations {
				if c.Id != req.ConversationId {
					kept = append(kept, c)
				}
			}
			g.conversations = kept
			delete(g.history, req.ConversationId)
			g.mu.Unlock()

		case constant.EventConfirmEmailAction:
			var req dto.EmailActionRequest
			json.Unmarshal(env.Data, &req)
			send(conn, constant.EventSendEmailResult, dto.SendEmailResultPayload{
				ConfirmationId: req.ConfirmationId,
				Status:         constant.EmailResultSuccess,
				Message:        "Email sent to the program chair",
			})

		case constant.EventCancelEmailAction:
			var req dto.EmailActionRequest
			json.Unmarshal(env.Data, &req)
			send(conn, constant.EventSendEmailResult, dto.SendEmailResultPayload{
				ConfirmationId: req.ConfirmationId,
				Status:         constant.EmailResultFailure,
				Message:        "Email cancelled",
			})
		}
	}
}

// handleSend mirrors the production flow: create the conversation when the
// message carries no id, echo the user message back, then reply (or ask
// for an email confirmation when the text requests one).
func (g *stubGateway) handleSend(conn *websocket.Conn, req dto.SendMessageRequest) {
	active := req.ConversationId
	if active == "" {
		active = "c-" + uuid.New().String()[:8]
		g.mu.Lock()
		g.conversations = append([]dto.ConversationMetadata{{
			Id:        active,
			Title:     req.Message,
			UpdatedAt: time.Now(),
		}}, g.conversations...)
		g.mu.Unlock()
		send(conn, constant.EventNewConversationStarted, dto.NewConversationStartedPayload{ConversationId: active})
	}

	userEcho := dto.ChatMessage{
		Id:      req.MessageId,
		Message: req.Message,
		IsUser:  true,
		Type:    constant.MessageTypeText,
	}
	g.appendHistory(active, userEcho)
	send(conn, constant.EventChatResponse, userEcho)

	if strings.Contains(strings.ToLower(req.Message), "email") {
		send(conn, constant.EventConfirmSendEmail, dto.ConfirmSendEmailAction{
			ConfirmationId: uuid.New().String(),
			Subject:        "Question for the program chair",
			Message:        req.Message,
			RequestType:    "send_email",
			TimeoutMs:      30000,
		})
		return
	}

	send(conn, constant.EventLoadingStep, dto.LoadingStepPayload{Step: constant.LoadingStepThinking})
	reply := dto.ChatMessage{
		Id:      uuid.New().String(),
		Message: "Echo: " + req.Message,
		IsUser:  false,
		Type:    constant.MessageTypeText,
	}
	g.appendHistory(active, reply)
	send(conn, constant.EventChatResponse, reply)
}

func (g *stubGateway) appendHistory(id string, msg dto.ChatMessage) {
	g.mu.Lock()
	g.history[id] = append(g.history[id], msg)
	g.mu.Unlock()
}

func (g *stubGateway) sendConversationList(conn *websocket.Conn) {
	g.mu.Lock()
	list := append([]dto.ConversationMetadata(nil), g.conversations...)
	g.mu.Unlock()
	send(conn, constant.EventConversationList, dto.ConversationListPayload{Conversations: list})
}

func send(conn *websocket.Conn, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	raw, _ := json.Marshal(envelope{Event: event, Data: data})
	conn.WriteMessage(websocket.TextMessage, raw)
}
