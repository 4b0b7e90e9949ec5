package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/bus"
	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
)

const eventsHeartbeat = 15 * time.Second

// Events bridges a bus subscription onto an SSE stream. A client may only
// attach to its own user channel or to conversations it participates in.
func (h *Handler) Events(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	channel := c.Param("channel")
	if !h.mayListen(c, channel, me.ID) {
		common.Fail(c, http.StatusNotFound, 40404, "channel not found")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.Bus.Subscribe(ctx, channel)
	if err != nil {
		log.Printf("[Events] subscribe failed channel=%s err=%v", channel, err)
		common.Fail(c, http.StatusInternalServerError, 50004, "subscribe failed")
		return
	}
	defer sub.Close()

	events := make(chan bus.Event, 16)
	sub.On("*", func(ev bus.Event) {
		select {
		case events <- ev:
		default:
			// slow consumer, drop: delivery is at-most-once anyway
		}
	})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}

	ticker := time.NewTicker(eventsHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			writeJSON(ev.Name, gin.H{
				"channel":   ev.Channel,
				"data":      ev.Payload,
				"timestamp": ev.Timestamp,
			})

		case <-ticker.C:
			writeJSON("ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) mayListen(c *gin.Context, channel, userID string) bool {
	if channel == chat.UserKey(userID) {
		return true
	}
	if strings.HasPrefix(channel, "conversation:") {
		return h.isParticipant(c, channel, userID)
	}
	return false
}
