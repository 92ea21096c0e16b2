package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

const (
	topicPrefix      = "chat/"
	defaultHeartbeat = 25 * time.Second
)

type streamHandler struct {
	hub       StreamHub
	heartbeat time.Duration
	closing   <-chan struct{}
}

// stream serves GET /stream?topic=chat/<threadId>[&topic=chat/channel/<channelId>] as
// server-sent events. A slow client loses events rather than slowing the publisher.
func (h *streamHandler) stream(c echo.Context) error {
	topics := c.QueryParams()["topic"]
	if len(topics) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one topic is required")
	}
	for _, t := range topics {
		if !strings.HasPrefix(t, topicPrefix) || len(t) == len(topicPrefix) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid topic %q", t))
		}
	}

	ctx := c.Request().Context()
	log := logger.FromContext(ctx).With(zap.Strings("topics", topics))

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return nil
	}
	w.Flush()

	sub := h.hub.Subscribe(topics...)
	defer h.hub.Unsubscribe(sub)
	log.Debug("Stream opened", zap.String("subscriber_id", sub.ID))

	heartbeat := h.heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Stream closed by client", zap.String("subscriber_id", sub.ID))
			return nil
		case <-h.closing:
			return nil
		case <-sub.Done():
			return nil
		case d := <-sub.Deliveries():
			payload, err := json.Marshal(d.Event)
			if err != nil {
				log.Warn("Failed to encode stream event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", d.Event.Type, payload); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
