package ingestion

import (
	"context"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// RouterInterface dispatches raw inbound frames.
type RouterInterface interface {
	Register(frameType model.FrameType, handler FrameHandlerFunc)
	RegisterDefault(handler FrameHandlerFunc)
	Route(ctx context.Context, metadata *model.FrameMetadata, raw []byte) error
}

// ConsumerInterface is the lifecycle of a JetStream consumer.
type ConsumerInterface interface {
	// Setup creates or reconciles the stream and the durable consumer.
	Setup() error
	// Start subscribes and begins dispatching frames.
	Start() error
	// Stop drains the subscription and waits for in-flight frames.
	Stop()
}

var _ RouterInterface = (*Router)(nil)

var _ ConsumerInterface = (*InboundConsumer)(nil)
