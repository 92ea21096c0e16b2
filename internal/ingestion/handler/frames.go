package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/tenant"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/validator"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// FrameHandler turns raw inbound frames into chat service calls. Every error it returns is
// marked either retryable or fatal so the consumer can pick nak or term.
type FrameHandler struct {
	service FrameService
}

// NewFrameHandler creates a frame handler backed by service.
func NewFrameHandler(service FrameService) *FrameHandler {
	return &FrameHandler{service: service}
}

// HandleFrame decodes raw, fills the thread id and type from the subject when the body
// omits them, and runs the matching operation.
func (h *FrameHandler) HandleFrame(ctx context.Context, frameType model.FrameType, metadata *model.FrameMetadata, raw []byte) error {
	requestID := uuid.NewString()
	if metadata != nil && metadata.MessageID != "" {
		requestID = metadata.MessageID
	}
	ctx = tenant.WithRequestID(ctx, requestID)

	var frame model.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %w", apperrors.ErrBadRequest, err), "decode %s frame", frameType)
	}
	if frame.Type == "" {
		frame.Type = frameType
	} else if frame.Type != frameType {
		return apperrors.NewFatal(apperrors.ErrBadRequest, "frame type %q does not match subject type %q", frame.Type, frameType)
	}
	if frame.ThreadID == 0 && metadata != nil {
		frame.ThreadID, _ = model.ThreadIDFromSubject(metadata.Subject)
	}
	if err := validator.Validate(frame); err != nil {
		return apperrors.NewFatal(err, "invalid %s frame", frameType)
	}

	log := logger.FromContext(ctx).With(zap.Int64("thread_id", frame.ThreadID), zap.String("frame_type", string(frameType)))
	ctx = logger.WithLogger(ctx, log)

	var err error
	switch frameType {
	case model.FrameSendMessage:
		err = h.service.HandleSendFrame(ctx, &frame)
	case model.FrameMarkRead:
		err = h.service.HandleReadFrame(ctx, &frame)
	case model.FrameSessionStart:
		err = h.service.HandleSessionStartFrame(ctx, &frame)
	case model.FrameSessionEnd:
		err = h.service.HandleSessionEndFrame(ctx, &frame)
	default:
		return apperrors.NewFatal(apperrors.ErrBadRequest, "unsupported frame type %q", frameType)
	}
	if err != nil {
		log.Warn("Frame handling failed", zap.Error(err))
		return classify(err, frameType)
	}
	log.Debug("Frame handled")
	return nil
}

// classify marks input and lookup failures fatal; anything else may succeed on redelivery.
func classify(err error, frameType model.FrameType) error {
	var retryable *apperrors.RetryableError
	var fatal *apperrors.FatalError
	switch {
	case errors.As(err, &retryable), errors.As(err, &fatal):
		return err
	case apperrors.IsValidationError(err),
		apperrors.IsBadRequestError(err),
		apperrors.IsNotFoundError(err),
		apperrors.IsConflictError(err):
		return apperrors.NewFatal(err, "handle %s frame", frameType)
	default:
		return apperrors.NewRetryable(err, "handle %s frame", frameType)
	}
}
