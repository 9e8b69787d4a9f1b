package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultMetaTimeout = 10 * time.Second
	defaultSendTimeout = 30 * time.Second
)

// Deps wires a Pipeline.
type Deps struct {
	Store    Store
	Gateway  Gateway
	Matcher  *Matcher
	Guard    *LoopGuard
	Messages *Log[MessageRecord]
	Replies  *Log[ReplyRecord]
	Bus      Publisher
	Log      zerolog.Logger

	// MetaTimeout bounds the chat-metadata fetch; zero means 10s.
	MetaTimeout time.Duration
	// SendTimeout bounds the reply send; zero means 30s.
	SendTimeout time.Duration
}

// Pipeline runs the ordered per-message filter chain and schedules delayed
// replies. It is stateless per message: the only persistent state is the loop
// guard and the session start timestamp.
type Pipeline struct {
	store    Store
	gateway  Gateway
	matcher  *Matcher
	guard    *LoopGuard
	messages *Log[MessageRecord]
	replies  *Log[ReplyRecord]
	bus      Publisher
	log      zerolog.Logger

	metaTimeout time.Duration
	sendTimeout time.Duration

	mu        sync.Mutex
	startedAt time.Time
}

func NewPipeline(d Deps) *Pipeline {
	if d.MetaTimeout <= 0 {
		d.MetaTimeout = defaultMetaTimeout
	}
	if d.SendTimeout <= 0 {
		d.SendTimeout = defaultSendTimeout
	}
	return &Pipeline{
		store:       d.Store,
		gateway:     d.Gateway,
		matcher:     d.Matcher,
		guard:       d.Guard,
		messages:    d.Messages,
		replies:     d.Replies,
		bus:         d.Bus,
		log:         d.Log,
		metaTimeout: d.MetaTimeout,
		sendTimeout: d.SendTimeout,
	}
}

// SetStartedAt arms the startup-window filter: messages whose origin
// timestamp predates t are dropped as stale queue drainage.
func (p *Pipeline) SetStartedAt(t time.Time) {
	p.mu.Lock()
	p.startedAt = t
	p.mu.Unlock()
}

// ClearStartedAt disarms the startup-window filter.
func (p *Pipeline) ClearStartedAt() {
	p.SetStartedAt(time.Time{})
}

// StartedAt returns the armed start timestamp, zero when disarmed.
func (p *Pipeline) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}

// OnMessage evaluates one inbound event to completion. A panic anywhere in
// the chain is recovered and answered with a best-effort bare attempt that
// re-runs trigger matching and the send outside the filter chain, so a
// transient failure does not silently swallow a matched trigger.
func (p *Pipeline) OnMessage(msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Any("panic", r).Str("id", msg.ID).Msg("pipeline failed, attempting bare reply")
			p.bareReply(msg)
		}
	}()
	p.process(msg)
}

func (p *Pipeline) process(msg InboundMessage) {
	cfg := p.store.Load()

	// Filter 1: drain messages queued before the session came online.
	if start := p.StartedAt(); !start.IsZero() && msg.Timestamp.Before(start) {
		p.log.Debug().Str("id", msg.ID).Msg("skip: queued before session start")
		return
	}

	// Filter 2: the bot's own just-sent message echoing back.
	if p.guard.IsRecentlySent(msg.ID) {
		p.log.Debug().Str("id", msg.ID).Msg("skip: recently sent by the bot")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.metaTimeout)
	info, metaErr := p.gateway.ChatInfo(ctx, msg.Chat)
	cancel()

	contact := info.Name
	chatType := ChatTypePrivate
	if metaErr != nil {
		// Degraded mode: keep going without channel-type and group-blacklist
		// filtering rather than drop a matched trigger.
		chatType = ChatTypeUnknown
		p.log.Warn().Err(metaErr).Str("chat", msg.Chat).Msg("chat metadata unavailable, admission filters skipped")
	} else if info.IsGroup {
		chatType = ChatTypeGroup
	}
	if contact == "" {
		contact = msg.Chat
	}

	// Everything that got this far is recorded and broadcast, before any
	// admission decision, so the dashboard sees all traffic.
	rec := MessageRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		From:      msg.Chat,
		Contact:   contact,
		Body:      msg.Body,
		FromMe:    msg.FromMe,
		Type:      chatType,
	}
	p.messages.Push(rec)
	p.publish(EventMessage, rec)

	// Filter 4: anti-echo when self-messages are otherwise eligible.
	if msg.FromMe && cfg.Settings.ReplyOwnMessages && cfg.IsConfiguredResponse(msg.Body) {
		p.log.Debug().Str("id", msg.ID).Msg("skip: own message equals a configured response")
		return
	}

	// Filter 5: self-messages without permission.
	if msg.FromMe && !cfg.Settings.ReplyOwnMessages {
		return
	}

	// Filter 6: group/private admission, non-self messages only.
	if metaErr == nil && !msg.FromMe {
		allowed := (info.IsGroup && cfg.Settings.ReplyInGroups) ||
			(!info.IsGroup && cfg.Settings.ReplyInPrivate)
		if !allowed {
			p.log.Debug().Str("id", msg.ID).Str("type", chatType).Msg("skip: chat type not allowed")
			return
		}
	}

	// Filter 7: blacklisted group names.
	if metaErr == nil && info.IsGroup && containsAnyFold(info.Name, cfg.GroupBlacklist) {
		p.log.Debug().Str("group", info.Name).Msg("skip: group is blacklisted")
		return
	}

	// Filter 8: blacklisted terms in the body.
	if containsAnyFold(msg.Body, cfg.Blacklist) {
		p.log.Debug().Str("id", msg.ID).Msg("skip: message contains a blacklisted term")
		return
	}

	match, ok := p.matcher.Match(msg.Body, cfg)
	if !ok {
		return
	}

	p.schedule(msg, match.Response, contact, chatType, Delay(cfg.Settings.DelayRange))
}

// bareReply is the secondary attempt after a pipeline failure: fresh config,
// trigger match, delayed send. No admission filters, no loop guard check.
func (p *Pipeline) bareReply(msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Any("panic", r).Str("id", msg.ID).Msg("bare reply attempt failed, message dropped")
		}
	}()

	cfg := p.store.Load()
	match, ok := p.matcher.Match(msg.Body, cfg)
	if !ok {
		return
	}
	p.schedule(msg, match.Response, msg.Chat, ChatTypeUnknown, Delay(cfg.Settings.DelayRange))
}

// schedule arms the delayed send and returns immediately. Timers are never
// canceled: once scheduled, a reply fires unless the process goes away.
func (p *Pipeline) schedule(msg InboundMessage, response, contact, chatType string, delay time.Duration) {
	p.log.Info().
		Str("contact", contact).
		Dur("delay", delay).
		Msg("reply scheduled")

	time.AfterFunc(delay, func() {
		p.send(msg, response, contact, chatType)
	})
}

func (p *Pipeline) send(msg InboundMessage, response, contact, chatType string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	defer cancel()

	sentID, err := p.gateway.Reply(ctx, msg, response)
	if err != nil {
		p.log.Error().Err(err).Str("contact", contact).Msg("reply send failed")
		return
	}

	p.guard.Register(sentID)

	rec := ReplyRecord{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		From:            msg.Chat,
		Contact:         contact,
		ReceivedMessage: msg.Body,
		SentReply:       response,
		Type:            chatType,
	}
	p.replies.Push(rec)
	p.publish(EventReply, rec)

	p.log.Info().Str("contact", contact).Msg("reply sent")
}

func (p *Pipeline) publish(event string, payload any) {
	if p.bus != nil {
		p.bus.Publish(event, payload)
	}
}

func containsAnyFold(s string, terms []string) bool {
	ls := strings.ToLower(s)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(ls, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
