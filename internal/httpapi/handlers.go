package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/tenant"
)

type handlers struct {
	svc ChatAPI
}

func (h *handlers) register(g *echo.Group) {
	g.POST("/channels", h.createChannel)
	g.GET("/channels", h.listChannels)
	g.PATCH("/channels/:channelId", h.updateChannel)
	g.DELETE("/channels/:channelId", h.deleteChannel)
	g.GET("/channels/:channelId/threads", h.listThreads)
	g.GET("/channels/:channelId/settings", h.listChatSettings)
	g.PUT("/channels/:channelId/settings/:key", h.putChatSetting)

	g.POST("/threads", h.createThread)
	g.DELETE("/threads/:threadId", h.deleteThread)
	g.GET("/threads/:threadId/messages", h.listMessages)
	g.POST("/threads/:threadId/messages", h.sendText)
	g.POST("/threads/:threadId/messages/file", h.sendFile)
	g.POST("/threads/:threadId/attachments", h.uploadAttachment)
	g.POST("/threads/:threadId/read", h.markRead)
	g.GET("/threads/:threadId/unread", h.countUnread)
	g.POST("/threads/:threadId/welcome", h.sendWelcome)
	g.GET("/threads/:threadId/participants", h.listParticipants)
	g.POST("/threads/:threadId/participants", h.joinParticipant)
	g.DELETE("/threads/:threadId/participants/:userIdentifier", h.leaveParticipant)

	g.PUT("/messages/:messageId", h.editMessage)
	g.DELETE("/messages/:messageId", h.deleteMessage)

	g.GET("/business-hours/status", h.businessHoursStatus)

	g.GET("/config/channels", h.listChannelConfigs)
	g.GET("/config/channels/:uuid", h.getChannelConfig)
	g.POST("/config/channels/:uuid", h.setChannelConfig)
	g.DELETE("/config/channels/:uuid", h.deleteChannelConfig)
	g.GET("/config/validate/:uuid", h.validateOwner)
}

func pathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", apperrors.ErrBadRequest, name, raw)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", apperrors.ErrBadRequest, name, raw)
	}
	return v, nil
}

func queryBool(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q", apperrors.ErrBadRequest, name, raw)
	}
	return v, nil
}

// bind decodes the JSON body. An empty body leaves dst untouched.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		if he, isHTTP := err.(*echo.HTTPError); isHTTP && he.Code != http.StatusBadRequest {
			return err
		}
		return fmt.Errorf("%w: malformed request body", apperrors.ErrBadRequest)
	}
	return nil
}

// actor picks the explicit actor (body or ?actor=) over the X-Actor header.
func actor(c echo.Context, explicit string) string {
	if explicit == "" {
		explicit = c.QueryParam("actor")
	}
	return tenant.ResolveActor(c.Request().Context(), explicit)
}
