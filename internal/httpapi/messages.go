package httpapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

const defaultMessagePageSize = 20

func (h *handlers) listMessages(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "size", defaultMessagePageSize)
	if err != nil {
		return err
	}
	p, err := h.svc.ListMessages(c.Request().Context(), id, page, size)
	if err != nil {
		return err
	}
	return ok(c, p, msgOK)
}

func (h *handlers) sendText(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	var req usecase.SendTextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.ThreadID = id
	req.Actor = actor(c, req.Actor)
	res, err := h.svc.SendText(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, res, msgOK)
}

func (h *handlers) sendFile(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	var req usecase.SendFileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.ThreadID = id
	req.Actor = actor(c, req.Actor)
	if req.SenderType == "" {
		req.SenderType = model.SenderAdmin
	}
	dto, err := h.svc.SendFile(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, dto, msgOK)
}

// uploadAttachment accepts a multipart form with a "file" part plus optional senderType,
// senderName and actor fields, stores the blob and posts it as a message.
func (h *handlers) uploadAttachment(c echo.Context) error {
	id, err := pathID(c, "threadId")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field \"file\" is required", apperrors.ErrBadRequest)
	}
	senderType := c.FormValue("senderType")
	if senderType == "" {
		senderType = model.SenderUser
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: open upload: %v", apperrors.ErrBadRequest, err)
	}
	defer f.Close()

	ctx := c.Request().Context()
	logger.FromContext(ctx).Debug("Attachment received",
		zap.Int64("thread_id", id),
		zap.String("file_name", fh.Filename),
		zap.String("size", utils.ByteCountSI(fh.Size)),
	)
	meta := filestore.Meta{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType)}
	dto, err := h.svc.UploadFile(ctx, id, senderType, c.FormValue("senderName"), actor(c, c.FormValue("actor")), meta, f)
	if err != nil {
		return err
	}
	return created(c, dto)
}

type editMessageBody struct {
	Content string `json:"content"`
	Actor   string `json:"actor"`
}

func (h *handlers) editMessage(c echo.Context) error {
	id, err := pathID(c, "messageId")
	if err != nil {
		return err
	}
	var body editMessageBody
	if err := bind(c, &body); err != nil {
		return err
	}
	dto, err := h.svc.EditMessage(c.Request().Context(), id, body.Content, actor(c, body.Actor))
	if err != nil {
		return err
	}
	return ok(c, dto, msgOK)
}

func (h *handlers) deleteMessage(c echo.Context) error {
	id, err := pathID(c, "messageId")
	if err != nil {
		return err
	}
	dto, err := h.svc.DeleteMessage(c.Request().Context(), id, actor(c, ""))
	if err != nil {
		return err
	}
	return ok(c, dto, "deleted")
}
