package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/store"
)

// Hub coordinates connected clients: presence, message routing and typing relay.
type Hub interface {
	// Run blocks until ctx is done, then disconnects every client.
	Run(ctx context.Context)
	// RegisterClient starts processing commands from c in order.
	RegisterClient(c *Client)
	// UnregisterClient stops c and removes it from presence.
	UnregisterClient(c *Client)
	// Presence exposes the registry for read-only queries.
	Presence() *Presence
}

// MessageStore is the persistence the hub needs.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *store.Message) error
	MarkRead(ctx context.Context, ids []int64, username string) (int64, error)
}

// Moderator classifies message text. It must not fail; unavailable
// classifiers produce a review verdict.
type Moderator interface {
	Classify(ctx context.Context, text string) moderation.Verdict
}

// AccessPolicy decides whether a user may still send.
type AccessPolicy interface {
	EvaluateAccess(ctx context.Context, userID int64, username string) (moderation.Access, error)
}

// Authenticator resolves a connect token to an account.
type Authenticator interface {
	Authenticate(token string) (userID int64, username string, err error)
}

// Options configures a hub. Store is required; the rest are optional.
type Options struct {
	Store     MessageStore
	Moderator Moderator
	// Access enables the abuse gate on sends when non-nil.
	Access AccessPolicy
	Auth   Authenticator
	// RequireToken rejects connects without a valid token.
	RequireToken bool
	Logger       *zerolog.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type hub struct {
	presence *Presence

	store        MessageStore
	moderator    Moderator
	access       AccessPolicy
	auth         Authenticator
	requireToken bool
	now          func() time.Time
	log          *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup

	// broadcastMu orders online_users snapshots so the last one a client
	// receives reflects the latest presence change.
	broadcastMu sync.Mutex
}

// NewHub creates a new chat hub instance.
func NewHub(opts Options) Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &hub{
		presence:     NewPresence(),
		store:        opts.Store,
		moderator:    opts.Moderator,
		access:       opts.Access,
		auth:         opts.Auth,
		requireToken: opts.RequireToken,
		now:          now,
		log:          logger,
		ctx:          ctx,
		cancel:       cancel,
		clients:      make(map[*Client]struct{}),
	}
}

func (h *hub) Presence() *Presence {
	return h.presence
}

func (h *hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	h.cancel()

	for _, c := range h.presence.Clear() {
		c.Close(nil)
	}
	h.mu.Lock()
	for c := range h.clients {
		c.Close(nil)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	h.wg.Wait()
	h.log.Info().Msg("hub stopped")
}

func (h *hub) RegisterClient(c *Client) {
	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		c.Close(nil)
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	go h.dispatch(c)
}

func (h *hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.Close(nil)
	if username, ok := h.presence.Disconnect(c); ok {
		h.log.Info().Str("client_id", c.ID).Str("user", username).Msg("user offline")
		h.broadcastOnline()
	}
}

// dispatch handles one connection's commands in arrival order.
func (h *hub) dispatch(c *Client) {
	defer h.wg.Done()
	for {
		select {
		case cmd := <-c.Commands:
			if cmd != nil {
				h.handleCommand(h.ctx, c, cmd)
			}
		case <-c.Done():
			return
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Kind != CommandConnect && c.Username() == "" {
		c.reply(ctx, errorEvent(ErrCodeUnauthorized, "connect first"))
		return
	}

	switch cmd.Kind {
	case CommandConnect:
		h.handleConnect(ctx, c, cmd)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	case CommandMarkRead:
		h.handleMarkRead(ctx, c, cmd)
	case CommandTyping:
		h.handleTyping(c, cmd)
	default:
		c.reply(ctx, errorEvent(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *hub) handleConnect(ctx context.Context, c *Client, cmd *Command) {
	username := strings.TrimSpace(cmd.Username)
	var userID int64

	switch {
	case cmd.Token != "" && h.auth != nil:
		id, name, err := h.auth.Authenticate(cmd.Token)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", c.ID).Msg("connect token rejected")
			c.reply(ctx, errorEvent(ErrCodeUnauthorized, "invalid token"))
			return
		}
		if username != "" && username != name {
			c.reply(ctx, errorEvent(ErrCodeUnauthorized, "username does not match token"))
			return
		}
		userID, username = id, name
	case h.requireToken:
		c.reply(ctx, errorEvent(ErrCodeUnauthorized, "token required"))
		return
	}

	if username == "" {
		c.reply(ctx, errorEvent(ErrCodeValidation, "username is required"))
		return
	}

	c.bind(userID, username)
	superseded, ok := h.presence.Connect(username, c)
	if !ok {
		h.log.Debug().Str("client_id", c.ID).Str("user", username).Msg("connect dropped: connection already closed")
		return
	}
	if superseded != nil {
		h.log.Info().Str("user", username).Str("old_client_id", superseded.ID).Str("client_id", c.ID).Msg("connection superseded")
		superseded.kick(ErrCodeSuperseded, "connected from another session")
	}

	h.log.Info().Str("client_id", c.ID).Str("user", username).Msg("user online")
	c.reply(ctx, &Event{Kind: EventConnected, User: username})
	h.broadcastOnline()
	h.broadcastExcept(c, &Event{Kind: EventUserJoined, User: username})
}

// handleSend validates, authorizes, classifies, persists and delivers one message.
func (h *hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	sender := strings.TrimSpace(cmd.Sender)
	receiver := strings.TrimSpace(cmd.Receiver)
	if sender == "" || receiver == "" || strings.TrimSpace(cmd.Text) == "" {
		messagesRouted.WithLabelValues("rejected").Inc()
		c.reply(ctx, errorEvent(ErrCodeValidation, "sender, receiver and message are required"))
		return
	}

	if current, ok := h.presence.Lookup(sender); !ok || current != c {
		messagesRouted.WithLabelValues("rejected").Inc()
		h.log.Warn().Str("client_id", c.ID).Str("claimed", sender).Str("user", c.Username()).Msg("send rejected: sender mismatch")
		c.reply(ctx, errorEvent(ErrCodeUnauthorized, "unauthorized"))
		return
	}

	if h.access != nil {
		access, err := h.access.EvaluateAccess(ctx, c.UserID(), sender)
		if err != nil {
			messagesRouted.WithLabelValues("failed").Inc()
			h.log.Error().Err(err).Str("user", sender).Msg("evaluate access")
			c.reply(ctx, errorEvent(ErrCodeSendFailed, "send failed"))
			return
		}
		if !access.Allowed {
			messagesRouted.WithLabelValues("rejected").Inc()
			c.reply(ctx, errorEvent(ErrCodeBlocked, "messaging disabled: too many flagged messages and comments"))
			return
		}
	}

	ts := ParseTimestamp(cmd.Timestamp, h.now())

	var verdict moderation.Verdict
	if h.moderator != nil {
		verdict = h.moderator.Classify(ctx, cmd.Text)
	}

	record := &store.Message{
		Sender:              sender,
		Receiver:            receiver,
		Content:             cmd.Text,
		Timestamp:           ts,
		IsBullying:          verdict.IsBullying,
		BullyingProbability: verdict.Probability,
		NeedsReview:         verdict.NeedsReview,
	}
	if err := h.store.SaveMessage(ctx, record); err != nil {
		messagesRouted.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Str("sender", sender).Str("receiver", receiver).Msg("save message")
		c.reply(ctx, errorEvent(ErrCodeSendFailed, "send failed"))
		return
	}
	msg := MessageFromRecord(record)

	status := StatusSaved
	if rc, ok := h.presence.Lookup(receiver); ok {
		if rc.deliver(&Event{Kind: EventReceiveMessage, Message: msg}) {
			status = StatusDelivered
		} else {
			eventsDropped.Inc()
			h.log.Warn().Str("receiver", receiver).Int64("message_id", msg.ID).Msg("receiver queue full, message left in storage")
		}
	}
	messagesRouted.WithLabelValues(status).Inc()

	if verdict.IsBullying {
		h.log.Info().
			Int64("message_id", msg.ID).
			Str("sender", sender).
			Float64("probability", verdict.Probability).
			Strs("terms", verdict.Terms).
			Bool("needs_review", verdict.NeedsReview).
			Msg("message flagged")
	}

	c.reply(ctx, &Event{Kind: EventMessageSent, Message: msg, Status: status})
}

func (h *hub) handleMarkRead(ctx context.Context, c *Client, cmd *Command) {
	username := c.Username()
	if cmd.Username != "" && cmd.Username != username {
		c.reply(ctx, errorEvent(ErrCodeUnauthorized, "unauthorized"))
		return
	}

	n, err := h.store.MarkRead(ctx, cmd.MessageIDs, username)
	if err != nil {
		h.log.Error().Err(err).Str("user", username).Msg("mark read")
		c.reply(ctx, errorEvent(ErrCodeBadRequest, "failed to mark messages as read"))
		return
	}
	c.reply(ctx, &Event{Kind: EventMessagesMarkedRead, Count: n})
}

func (h *hub) handleTyping(c *Client, cmd *Command) {
	sender := c.Username()
	if cmd.Sender != "" && cmd.Sender != sender {
		return
	}
	if rc, ok := h.presence.Lookup(strings.TrimSpace(cmd.Receiver)); ok && rc != c {
		rc.deliver(&Event{Kind: EventUserTyping, User: sender, IsTyping: cmd.IsTyping})
	}
}

func (h *hub) broadcastOnline() {
	h.broadcastMu.Lock()
	defer h.broadcastMu.Unlock()

	ev := &Event{Kind: EventOnlineUsers, Users: h.presence.Snapshot()}
	for _, c := range h.presence.Clients() {
		if !c.deliver(ev) {
			eventsDropped.Inc()
		}
	}
}

func (h *hub) broadcastExcept(skip *Client, ev *Event) {
	for _, c := range h.presence.Clients() {
		if c == skip {
			continue
		}
		if !c.deliver(ev) {
			eventsDropped.Inc()
		}
	}
}
