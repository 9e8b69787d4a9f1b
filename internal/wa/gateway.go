package wa

import (
	"context"
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"zapbot/internal/engine"
)

// Session implements engine.Gateway.
var _ engine.Gateway = (*Session)(nil)

var errNotConnected = errors.New("session not connected")

// ChatInfo resolves the group flag and display name for a chat. Group name
// lookups go to the server and honor ctx deadlines; the pipeline bounds the
// call and degrades when it times out.
func (s *Session) ChatInfo(ctx context.Context, chatID string) (engine.ChatInfo, error) {
	client := s.currentClient()
	if client == nil {
		return engine.ChatInfo{}, errNotConnected
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return engine.ChatInfo{}, fmt.Errorf("parse chat jid: %w", err)
	}

	if jid.Server == types.GroupServer {
		info, err := client.GetGroupInfo(ctx, jid)
		if err != nil {
			return engine.ChatInfo{}, fmt.Errorf("group info: %w", err)
		}
		return engine.ChatInfo{IsGroup: true, Name: info.Name}, nil
	}

	name := jid.User
	if contact, err := client.Store.Contacts.GetContact(ctx, jid); err == nil && contact.Found {
		switch {
		case contact.FullName != "":
			name = contact.FullName
		case contact.PushName != "":
			name = contact.PushName
		}
	}
	return engine.ChatInfo{IsGroup: false, Name: name}, nil
}

// Reply sends text as a quoted reply to msg and returns the id of the sent
// message for loop-guard registration.
func (s *Session) Reply(ctx context.Context, msg engine.InboundMessage, text string) (string, error) {
	client := s.currentClient()
	if client == nil {
		return "", errNotConnected
	}

	chat, err := types.ParseJID(msg.Chat)
	if err != nil {
		return "", fmt.Errorf("parse chat jid: %w", err)
	}

	out := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(msg.ID),
				Participant:   proto.String(msg.Sender),
				QuotedMessage: &waE2E.Message{Conversation: proto.String(msg.Body)},
			},
		},
	}

	resp, err := client.SendMessage(ctx, chat, out)
	if err != nil {
		return "", fmt.Errorf("send reply: %w", err)
	}
	return resp.ID, nil
}
