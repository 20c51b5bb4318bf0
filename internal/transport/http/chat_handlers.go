package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/proto"
	"github.com/safetalk/safetalk-server/internal/service/chat"
)

const (
	blockedWarning = "Excessive bullying behavior may result in chat restrictions"
	reportWarning  = "Bullying behavior is monitored and may result in account restrictions"
)

// ChatHandlers provides HTTP handlers for conversation queries.
type ChatHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(chatService *chat.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{chat: chatService, log: logger}
}

// MessagesResponse is one page of history.
type MessagesResponse struct {
	Messages []proto.Message `json:"messages"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"has_more"`
}

// ConversationResponse summarizes a conversation.
type ConversationResponse struct {
	Username    string         `json:"username"`
	UnreadCount int64          `json:"unread_count"`
	LastMessage *proto.Message `json:"last_message"`
	IsOnline    bool           `json:"is_online"`
}

// OnlineUserResponse describes another user.
type OnlineUserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsOnline bool   `json:"is_online"`
}

// BullyingReportResponse holds flagged message counts.
type BullyingReportResponse struct {
	ReceivedBullyingCount int64  `json:"received_bullying_count"`
	SentBullyingCount     int64  `json:"sent_bullying_count"`
	Warning               string `json:"warning"`
}

// BreakdownResponse splits the flagged total.
type BreakdownResponse struct {
	BullyingComments int64 `json:"bullying_comments"`
	BullyingMessages int64 `json:"bullying_messages"`
}

// CanChatResponse reports the abuse gate outcome.
type CanChatResponse struct {
	CanChat       bool              `json:"can_chat"`
	IsBlocked     bool              `json:"is_blocked"`
	BullyingCount int64             `json:"bullying_count"`
	MaxAllowed    int               `json:"max_allowed"`
	Breakdown     BreakdownResponse `json:"breakdown"`
	Warning       *string           `json:"warning"`
}

// Messages returns history with a peer.
// GET /api/chat/messages/:username?limit=50&offset=0
func (h *ChatHandlers) Messages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, err := queryInt(c, "limit", h.chat.DefaultLimit())
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		return
	}

	page, err := h.chat.History(c.Request.Context(), userID, c.Param("username"), limit, offset)
	if err != nil {
		h.respondError(c, err, "failed to load messages")
		return
	}

	messages := make([]proto.Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		messages = append(messages, messageFromRecord(m))
	}
	c.JSON(http.StatusOK, MessagesResponse{Messages: messages, Total: len(messages), HasMore: page.HasMore})
}

// Conversations lists the caller's conversations.
// GET /api/chat/conversations
func (h *ChatHandlers) Conversations(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	convs, err := h.chat.Conversations(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "failed to load conversations")
		return
	}

	response := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		item := ConversationResponse{
			Username:    conv.Peer,
			UnreadCount: conv.UnreadCount,
			IsOnline:    conv.IsOnline,
		}
		if conv.LastMessage != nil {
			last := messageFromRecord(conv.LastMessage)
			item.LastMessage = &last
		}
		response = append(response, item)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": response})
}

// OnlineUsers lists all other users with presence.
// GET /api/chat/online-users
func (h *ChatHandlers) OnlineUsers(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.chat.OnlineUsers(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "failed to load users")
		return
	}

	response := make([]OnlineUserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, OnlineUserResponse{Username: u.Username, Email: u.Email, IsOnline: u.IsOnline})
	}
	c.JSON(http.StatusOK, gin.H{"users": response})
}

// BullyingReport returns the caller's flagged message counts.
// GET /api/chat/bullying-report
func (h *ChatHandlers) BullyingReport(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	report, err := h.chat.BullyingReport(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "failed to build report")
		return
	}
	c.JSON(http.StatusOK, BullyingReportResponse{
		ReceivedBullyingCount: report.Received,
		SentBullyingCount:     report.Sent,
		Warning:               reportWarning,
	})
}

// CanChat reports whether the caller is still allowed to message and comment.
// GET /api/chat/can-chat
func (h *ChatHandlers) CanChat(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	access, err := h.chat.CanChat(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "failed to check chat eligibility")
		return
	}

	response := CanChatResponse{
		CanChat:       access.Allowed,
		IsBlocked:     !access.Allowed,
		BullyingCount: access.TotalFlaggedCount,
		MaxAllowed:    access.MaxAllowed,
		Breakdown: BreakdownResponse{
			BullyingComments: access.Breakdown.Comments,
			BullyingMessages: access.Breakdown.Messages,
		},
	}
	if !access.Allowed {
		warning := blockedWarning
		response.Warning = &warning
	}
	c.JSON(http.StatusOK, response)
}

func (h *ChatHandlers) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, chat.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case errors.Is(err, chat.ErrInvalidPeer):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid username"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
