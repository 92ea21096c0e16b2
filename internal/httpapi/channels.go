package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

func (h *handlers) createChannel(c echo.Context) error {
	var req usecase.CreateChannelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Actor = actor(c, req.Actor)
	channel, err := h.svc.CreateChannel(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, channel, msgOK)
}

func (h *handlers) listChannels(c echo.Context) error {
	var owner *string
	if v := c.QueryParam("ownerUserUuid"); v != "" {
		owner = &v
	}
	channels, err := h.svc.ListChannelsWithUnread(c.Request().Context(), owner)
	if err != nil {
		return err
	}
	return ok(c, channels, msgOK)
}

func (h *handlers) updateChannel(c echo.Context) error {
	id, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	var req usecase.UpdateChannelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Actor = actor(c, req.Actor)
	channel, err := h.svc.UpdateChannel(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return ok(c, channel, msgOK)
}

// channelConflict is the body of a refused delete.
type channelConflict struct {
	Message              string         `json:"message"`
	Threads              []model.Thread `json:"threads"`
	ForceDeleteAvailable bool           `json:"forceDeleteAvailable"`
}

func (h *handlers) deleteChannel(c echo.Context) error {
	id, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	force, err := queryBool(c, "force")
	if err != nil {
		return err
	}
	res, err := h.svc.DeleteChannel(c.Request().Context(), id, actor(c, ""), force)
	if err != nil {
		return err
	}
	switch {
	case res.Conflict:
		return c.JSON(http.StatusConflict, Response{
			Success: false,
			Data: channelConflict{
				Message:              fmt.Sprintf("Channel has %d threads and cannot be deleted", len(res.Threads)),
				Threads:              res.Threads,
				ForceDeleteAvailable: res.ForceAvailable,
			},
			Code: CodeChannelHasThreads,
		})
	case res.AlreadyDeleted:
		return ok(c, true, "Channel already deleted")
	case force:
		return ok(c, true, "Channel soft deleted with associated threads")
	default:
		return ok(c, true, "Channel soft deleted")
	}
}

func (h *handlers) listThreads(c echo.Context) error {
	id, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	threads, err := h.svc.ListThreadsWithUnread(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, threads, msgOK)
}

func (h *handlers) listChatSettings(c echo.Context) error {
	id, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	settings, err := h.svc.ListChatSettings(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, settings, msgOK)
}

type chatSettingBody struct {
	Value string `json:"value"`
	Actor string `json:"actor"`
}

func (h *handlers) putChatSetting(c echo.Context) error {
	id, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	var body chatSettingBody
	if err := bind(c, &body); err != nil {
		return err
	}
	setting, err := h.svc.PutChatSetting(c.Request().Context(), id, c.Param("key"), body.Value, actor(c, body.Actor))
	if err != nil {
		return err
	}
	return ok(c, setting, msgOK)
}
