package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/ingestion"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// Processor wires inbound NATS frames to the chat service.
type Processor struct {
	router       ingestion.RouterInterface
	frameHandler handler.FrameHandlerInterface
	consumer     ingestion.ConsumerInterface
}

// NewProcessor builds the router, the frame handler and the pooled inbound consumer.
func NewProcessor(service handler.FrameService, jsClient jetstream.ClientInterface, cfg *config.Config) (*Processor, error) {
	router := ingestion.NewRouter()
	consumer, err := ingestion.NewInboundConsumer(jsClient, router, cfg.NATS.Inbound, cfg.WorkerPools.Inbound)
	if err != nil {
		return nil, err
	}
	return newProcessor(router, handler.NewFrameHandler(service), consumer), nil
}

func newProcessor(router ingestion.RouterInterface, frameHandler handler.FrameHandlerInterface, consumer ingestion.ConsumerInterface) *Processor {
	return &Processor{router: router, frameHandler: frameHandler, consumer: consumer}
}

// GetRouter returns the processor's frame router.
func (p *Processor) GetRouter() ingestion.RouterInterface {
	return p.router
}

// Setup registers the frame handlers and reconciles the stream and consumer.
func (p *Processor) Setup() error {
	for _, ft := range []model.FrameType{model.FrameSendMessage, model.FrameMarkRead, model.FrameSessionStart, model.FrameSessionEnd} {
		p.router.Register(ft, p.frameHandler.HandleFrame)
	}
	p.router.RegisterDefault(func(ctx context.Context, frameType model.FrameType, metadata *model.FrameMetadata, raw []byte) error {
		logger.FromContext(ctx).Warn("Unhandled frame", zap.String("subject", metadata.Subject))
		return apperrors.NewFatal(apperrors.ErrBadRequest, "unhandled frame on %q", metadata.Subject)
	})

	if err := p.consumer.Setup(); err != nil {
		return fmt.Errorf("failed to setup inbound consumer: %w", err)
	}
	logger.Log.Info("Processor setup complete")
	return nil
}

// Start begins consuming frames.
func (p *Processor) Start() error {
	if err := p.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start inbound consumer: %w", err)
	}
	logger.Log.Info("Processor started")
	return nil
}

// Stop drains the consumer and waits for frames in flight.
func (p *Processor) Stop() {
	p.consumer.Stop()
	logger.Log.Info("Processor stopped")
}
