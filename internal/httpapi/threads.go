package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

func (h *handlers) createThread(c echo.Context) error {
	var req usecase.CreateThreadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.UserIP == "" {
		req.UserIP = c.RealIP()
	}
	req.Actor = actor(c, req.Actor)
	thread, isNew, err := h.svc.GetOrCreateThread(c.Request().Context(), req)
	if err != nil {
		return err
	}
	if isNew {
		return created(c, thread)
	}
	return ok(c, thread, msgOK)
}

func (h *handlers) deleteThread(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteThread(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, true, "Thread deleted")
}

func (h *handlers) listParticipants(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	roster, err := h.svc.ListParticipants(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, roster, msgOK)
}

func (h *handlers) joinParticipant(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	var req usecase.JoinRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Actor = actor(c, req.Actor)
	p, err := h.svc.JoinParticipant(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return ok(c, p, msgOK)
}

func (h *handlers) leaveParticipant(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	if err := h.svc.LeaveParticipant(c.Request().Context(), id, c.Param("userIdentifier")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) countUnread(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	n, err := h.svc.CountUnread(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, map[string]int64{"threadId": id, "unreadCount": n}, msgOK)
}

func (h *handlers) markRead(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	res, err := h.svc.MarkRead(c.Request().Context(), id, actor(c, ""))
	if err != nil {
		return err
	}
	return ok(c, res, msgOK)
}

func (h *handlers) sendWelcome(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	dto, err := h.svc.SendWelcome(c.Request().Context(), id, actor(c, ""))
	if err != nil {
		return err
	}
	return ok(c, dto, "Welcome message created")
}

func (h *handlers) businessHoursStatus(c echo.Context) error {
	return ok(c, h.svc.BusinessHoursStatus(c.Request().Context()), msgOK)
}
