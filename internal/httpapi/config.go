package httpapi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
)

// maxConfigBody bounds a channel config document.
const maxConfigBody = 1 << 20

func (h *handlers) getChannelConfig(c echo.Context) error {
	cfg, err := h.svc.GetChannelConfig(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return err
	}
	return ok(c, cfg, msgOK)
}

// setChannelConfig stores the raw JSON body as the owner's channel settings.
func (h *handlers) setChannelConfig(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxConfigBody+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", apperrors.ErrBadRequest, err)
	}
	if len(raw) > maxConfigBody {
		return fmt.Errorf("%w: channel config exceeds %d bytes", apperrors.ErrBadRequest, maxConfigBody)
	}
	cfg, err := h.svc.SetChannelConfig(c.Request().Context(), c.Param("uuid"), json.RawMessage(raw))
	if err != nil {
		return err
	}
	return ok(c, cfg, "Channel config saved")
}

func (h *handlers) deleteChannelConfig(c echo.Context) error {
	if err := h.svc.DeleteChannelConfig(c.Request().Context(), c.Param("uuid")); err != nil {
		return err
	}
	return ok(c, true, "Channel config deleted")
}

func (h *handlers) listChannelConfigs(c echo.Context) error {
	configs, err := h.svc.ListChannelConfigs(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, configs, msgOK)
}

func (h *handlers) validateOwner(c echo.Context) error {
	res, err := h.svc.ValidateOwner(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return err
	}
	return ok(c, res, msgOK)
}
