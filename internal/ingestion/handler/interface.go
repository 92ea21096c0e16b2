package handler

import (
	"context"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// FrameService is the part of the chat service inbound frames drive.
type FrameService interface {
	HandleSendFrame(ctx context.Context, frame *model.InboundFrame) error
	HandleReadFrame(ctx context.Context, frame *model.InboundFrame) error
	HandleSessionStartFrame(ctx context.Context, frame *model.InboundFrame) error
	HandleSessionEndFrame(ctx context.Context, frame *model.InboundFrame) error
}

// FrameHandlerInterface decodes and dispatches one raw frame.
type FrameHandlerInterface interface {
	HandleFrame(ctx context.Context, frameType model.FrameType, metadata *model.FrameMetadata, raw []byte) error
}

var _ FrameHandlerInterface = (*FrameHandler)(nil)
