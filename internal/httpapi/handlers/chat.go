package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
)

// EventNewMessage is published on the conversation channel after every
// message append.
const EventNewMessage = "message:new"

type createConversationReq struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) CreateConversation(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.UserID == me.ID {
		common.Fail(c, http.StatusBadRequest, 10005, "cannot start a conversation with yourself")
		return
	}

	id, err := h.Repo.GetOrCreateConversation(c.Request.Context(), me.ID, req.UserID)
	if err != nil {
		log.Printf("[CreateConversation] failed user=%s other=%s err=%v", me.ID, req.UserID, err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to open conversation")
		return
	}

	common.OK(c, gin.H{"conversation_id": id})
}

func (h *Handler) ListConversations(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	convs, err := h.Repo.ListConversations(c.Request.Context(), me.ID)
	if err != nil {
		log.Printf("[ListConversations] failed user=%s err=%v", me.ID, err)
		convs = []chat.Conversation{}
	}

	common.OK(c, gin.H{"conversations": convs})
}

type sendMessageReq struct {
	ReceiverID  string `json:"receiver_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

// SendMessage writes through the repository and publishes the new message on
// the conversation channel. The write path fails closed.
func (h *Handler) SendMessage(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.ReceiverID == me.ID {
		common.Fail(c, http.StatusBadRequest, 10005, "cannot message yourself")
		return
	}

	ctx := c.Request.Context()

	convID, err := h.Repo.GetOrCreateConversation(ctx, me.ID, req.ReceiverID)
	if err != nil {
		log.Printf("[SendMessage] conversation failed user=%s receiver=%s err=%v", me.ID, req.ReceiverID, err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to send message")
		return
	}

	msg, err := h.Repo.AppendMessage(ctx, convID, me.ID, req.Content, req.MessageType)
	if err != nil {
		log.Printf("[SendMessage] append failed user=%s conversation=%s err=%v", me.ID, convID, err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to send message")
		return
	}

	if err := h.Bus.Publish(ctx, convID, EventNewMessage, msg); err != nil {
		// the message is persisted; delivery is best-effort
		log.Printf("[SendMessage] publish failed conversation=%s err=%v", convID, err)
	}

	common.OK(c, gin.H{
		"conversation_id": convID,
		"message":         msg,
	})
}

// ListMessages returns the conversation history ascending by timestamp.
// start/stop are sorted-set ranks (Redis semantics, negative counts from the
// end); the default is the full range.
func (h *Handler) ListMessages(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	convID := c.Param("conversation_id")
	ctx := c.Request.Context()

	if !h.isParticipant(c, convID, me.ID) {
		// hide existence from non-participants
		common.Fail(c, http.StatusNotFound, 40403, "conversation not found")
		return
	}

	start := parseRank(c.Query("start"), 0)
	stop := parseRank(c.Query("stop"), -1)

	msgs, err := h.Repo.ListMessages(ctx, convID, start, stop)
	if err != nil {
		log.Printf("[ListMessages] failed conversation=%s err=%v", convID, err)
		msgs = []chat.Message{}
	}

	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) isParticipant(c *gin.Context, conversationID, userID string) bool {
	conv, found, err := h.Repo.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		log.Printf("[Chat] conversation lookup failed id=%s err=%v", conversationID, err)
		return false
	}
	if !found {
		return false
	}
	return conv.Participant1 == userID || conv.Participant2 == userID
}

func parseRank(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
