package ingestion

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// FrameHandlerFunc processes one raw inbound frame.
type FrameHandlerFunc func(ctx context.Context, frameType model.FrameType, metadata *model.FrameMetadata, raw []byte) error

// Router dispatches frames by the type encoded in their subject.
type Router struct {
	handlers       map[model.FrameType]FrameHandlerFunc
	defaultHandler FrameHandlerFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.FrameType]FrameHandlerFunc),
	}
}

// Register binds a handler to a frame type.
func (r *Router) Register(frameType model.FrameType, handler FrameHandlerFunc) {
	r.handlers[frameType] = handler
}

// RegisterDefault sets the handler used for frame types nothing else claims.
func (r *Router) RegisterDefault(handler FrameHandlerFunc) {
	r.defaultHandler = handler
}

// Route finds the handler for metadata.Subject and runs it. A frame nobody handles is a
// fatal error so it is not redelivered.
func (r *Router) Route(ctx context.Context, metadata *model.FrameMetadata, raw []byte) error {
	frameType, found := model.FrameTypeFromSubject(metadata.Subject)

	log := logger.FromContext(ctx).With(zap.String("frame_type", string(frameType)))
	ctx = logger.WithLogger(ctx, log)
	log.Debug("Frame received", zap.String("payload_size", utils.ByteCountSI(int64(len(raw)))))

	if found {
		if handler, ok := r.handlers[frameType]; ok {
			return handler(ctx, frameType, metadata, raw)
		}
	}
	if r.defaultHandler != nil {
		log.Warn("No specific handler for frame, using default", zap.String("subject", metadata.Subject))
		return r.defaultHandler(ctx, frameType, metadata, raw)
	}
	log.Error("No handler registered for frame", zap.String("subject", metadata.Subject))
	return apperrors.NewFatal(apperrors.ErrBadRequest, "no handler for subject %q", metadata.Subject)
}
