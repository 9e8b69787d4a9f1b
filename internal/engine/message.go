// Package engine implements the message-triggering decision engine: the
// trigger matcher, the loop guard and the per-message decision pipeline that
// sits between the WhatsApp session and the configured auto-reply rules.
package engine

import (
	"context"
	"time"

	"zapbot/internal/config"
)

// Channel types as the dashboard wire contract expects them. Unknown marks
// records written while chat metadata was unavailable, so operators can tell
// degraded entries apart.
const (
	ChatTypeGroup   = "grupo"
	ChatTypePrivate = "privado"
	ChatTypeUnknown = "desconhecido"
)

// Dashboard event names emitted through the observer bus.
const (
	EventMessage = "nova-mensagem"
	EventReply   = "nova-resposta"
)

// InboundMessage is one message event as surfaced by the session. The stream
// includes the bot's own sends (FromMe), which is what makes the loop guard
// necessary.
type InboundMessage struct {
	ID        string
	Chat      string
	Sender    string
	Body      string
	FromMe    bool
	Timestamp time.Time
}

// ChatInfo is the chat metadata fetched from the gateway.
type ChatInfo struct {
	IsGroup bool
	Name    string
}

// Gateway is the messaging session as the pipeline sees it: a metadata lookup
// and a reply primitive. Reply returns the identifier of the sent message so
// the loop guard can suppress its echo.
type Gateway interface {
	ChatInfo(ctx context.Context, chatID string) (ChatInfo, error)
	Reply(ctx context.Context, msg InboundMessage, text string) (string, error)
}

// Store supplies a fresh configuration snapshot per message.
type Store interface {
	Load() config.Config
}

// Publisher is the fire-and-forget observer channel to the dashboard.
type Publisher interface {
	Publish(event string, payload any)
}

// MessageRecord is one entry of the "all messages seen" log, recorded before
// any admission decision so the dashboard sees all traffic.
type MessageRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	Contact   string    `json:"contact"`
	Body      string    `json:"body"`
	FromMe    bool      `json:"fromMe"`
	Type      string    `json:"type"`
}

// ReplyRecord is one entry of the sent-replies history.
type ReplyRecord struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	From            string    `json:"from"`
	Contact         string    `json:"contact"`
	ReceivedMessage string    `json:"receivedMessage"`
	SentReply       string    `json:"sentReply"`
	Type            string    `json:"type"`
}
