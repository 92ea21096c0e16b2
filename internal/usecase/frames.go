package usecase

import (
	"context"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// Inbound NATS frames are thin wrappers over the same operations the HTTP API exposes.

// HandleSendFrame stores the text carried by a message.send frame.
func (s *ChatService) HandleSendFrame(ctx context.Context, frame *model.InboundFrame) error {
	_, err := s.SendText(ctx, SendTextRequest{
		ThreadID:   frame.ThreadID,
		SenderType: frame.SenderType,
		SenderName: frame.SenderName,
		Content:    frame.Content,
		Actor:      frame.Actor,
	})
	return err
}

// HandleReadFrame marks the frame's thread read.
func (s *ChatService) HandleReadFrame(ctx context.Context, frame *model.InboundFrame) error {
	_, err := s.MarkRead(ctx, frame.ThreadID, frame.Actor)
	return err
}

// HandleSessionStartFrame logs a client connecting to the frame's thread.
func (s *ChatService) HandleSessionStartFrame(ctx context.Context, frame *model.InboundFrame) error {
	_, err := s.StartSession(ctx, frame.ThreadID, frame.SessionID)
	return err
}

// HandleSessionEndFrame closes the client session named in the frame.
func (s *ChatService) HandleSessionEndFrame(ctx context.Context, frame *model.InboundFrame) error {
	_, err := s.EndSession(ctx, frame.ThreadID, frame.SessionID, frame.Reason)
	return err
}
