package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

const (
	consumerType = "inbound"
	poolName     = "inbound"
)

// AckNakAction is the decision taken for a frame after it was handled.
type AckNakAction int

const (
	ActionAck      AckNakAction = iota // handled
	ActionNakDelay                     // retryable failure with deliveries left
	ActionTerm                         // fatal failure or deliveries exhausted
)

func (a AckNakAction) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionNakDelay:
		return "nak_retry"
	default:
		return "term"
	}
}

// determineAckNakAction maps the handling result to an ack decision. Retry delays double from
// nakBaseDelay per delivery, capped at nakMaxDelay.
func determineAckNakAction(processingErr error, numDelivered uint64, maxDeliver int, nakBaseDelay, nakMaxDelay time.Duration) (AckNakAction, time.Duration) {
	if processingErr == nil {
		return ActionAck, 0
	}
	if !apperrors.IsRetryable(processingErr) {
		return ActionTerm, 0
	}
	if maxDeliver > 0 && numDelivered >= uint64(maxDeliver) {
		return ActionTerm, 0
	}

	delay := nakBaseDelay
	for i := uint64(1); i < numDelivered && delay < nakMaxDelay; i++ {
		delay *= 2
	}
	if nakMaxDelay > 0 && delay > nakMaxDelay {
		delay = nakMaxDelay
	}
	return ActionNakDelay, delay
}

// acker is the acknowledgement surface of a JetStream message.
type acker interface {
	Metadata() (*nats.MsgMetadata, error)
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// InboundConsumer reads client frames from the CHAT_INBOUND stream and handles each one on
// an ants worker pool.
type InboundConsumer struct {
	client jetstream.ClientInterface
	router RouterInterface
	cfg    config.ConsumerNatsConfig
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
	wg     sync.WaitGroup
}

// NewInboundConsumer sizes the worker pool and prepares the consumer; nothing touches NATS
// until Setup.
func NewInboundConsumer(client jetstream.ClientInterface, router RouterInterface, cfg config.ConsumerNatsConfig, poolCfg config.WorkerPoolConfig) (*InboundConsumer, error) {
	log := logger.Log.Named("inbound_consumer")

	size := poolCfg.PoolSize
	if size <= 0 {
		size = 1
	}
	opts := []ants.Option{
		ants.WithLogger(newAntsLoggerAdapter(log.Named("ants_pool"))),
		ants.WithPanicHandler(func(p interface{}) {
			log.Error("Worker panic caught", zap.Any("panic", p), zap.Stack("stack"))
		}),
	}
	if poolCfg.MaxBlock > 0 {
		opts = append(opts, ants.WithMaxBlockingTasks(poolCfg.MaxBlock))
	}
	if poolCfg.ExpiryTime > 0 {
		opts = append(opts, ants.WithExpiryDuration(poolCfg.ExpiryTime))
	}
	pool, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, fmt.Errorf("create inbound worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, log.With(zap.String("stream", cfg.Stream), zap.String("consumer", cfg.Consumer)))

	return &InboundConsumer{
		client: client,
		router: router,
		cfg:    cfg,
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (c *InboundConsumer) streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  c.cfg.SubjectList,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(c.cfg.MaxAge) * 24 * time.Hour,
	}
}

func (c *InboundConsumer) consumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:        c.cfg.Consumer,
		DeliverGroup:   c.cfg.QueueGroup,
		FilterSubjects: c.cfg.SubjectList,
		AckPolicy:      nats.AckExplicitPolicy,
		DeliverSubject: nats.NewInbox(),
		DeliverPolicy:  nats.DeliverAllPolicy,
		ReplayPolicy:   nats.ReplayInstantPolicy,
		MaxDeliver:     c.cfg.MaxDeliver,
		AckWait:        30 * time.Second,
		MaxAckPending:  1000,
	}
}

// Setup reconciles the stream and the durable push consumer.
func (c *InboundConsumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up inbound consumer", zap.Strings("subjects", c.cfg.SubjectList))

	if err := c.client.SetupStream(c.ctx, c.streamConfig()); err != nil {
		return fmt.Errorf("setup inbound stream %q: %w", c.cfg.Stream, err)
	}
	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, c.consumerConfig()); err != nil {
		return fmt.Errorf("setup inbound consumer %q on %q: %w", c.cfg.Consumer, c.cfg.Stream, err)
	}
	log.Info("Inbound consumer setup complete")
	return nil
}

// Start binds to the consumer. The subject is empty because the consumer's filter subjects
// already select the frames.
func (c *InboundConsumer) Start() error {
	sub, err := c.client.SubscribePush("", c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.dispatch)
	if err != nil {
		return fmt.Errorf("subscribe inbound consumer %q: %w", c.cfg.Consumer, err)
	}
	c.sub = sub
	logger.FromContext(c.ctx).Info("Inbound consumer subscribed", zap.String("group", c.cfg.QueueGroup))
	return nil
}

// Stop drains the subscription, waits for frames already on the pool and releases it.
func (c *InboundConsumer) Stop() {
	log := logger.FromContext(c.ctx)
	log.Info("Stopping inbound consumer")
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining inbound subscription", zap.Error(err))
		}
	}
	c.wg.Wait()
	c.pool.Release()
	c.cancel()
	log.Info("Inbound consumer stopped")
}

// dispatch runs on the NATS delivery goroutine; it blocks when the pool is saturated.
func (c *InboundConsumer) dispatch(msg *nats.Msg) {
	c.wg.Add(1)
	err := c.pool.Submit(func() {
		defer c.wg.Done()
		c.handleMessage(msg.Subject, msg.Header, msg.Data, msg)
		observer.SetWorkerPoolRunning(poolName, c.pool.Running())
	})
	if err != nil {
		c.wg.Done()
		logger.FromContext(c.ctx).Error("Failed to submit frame to worker pool", zap.Error(err), zap.String("subject", msg.Subject))
		if nakErr := msg.NakWithDelay(c.cfg.NakBaseDelay); nakErr != nil {
			logger.FromContext(c.ctx).Error("Failed to NAK frame after pool rejection", zap.Error(nakErr))
		}
	}
}

func (c *InboundConsumer) handleMessage(subject string, header nats.Header, data []byte, msg acker) {
	startTime := utils.Now()
	frameType, _ := model.FrameTypeFromSubject(subject)
	log := logger.FromContext(c.ctx).With(zap.String("subject", subject))

	defer func() {
		observer.ObserveFrameProcessingDuration(string(frameType), consumerType, time.Since(startTime))
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in frame handler", zap.Any("panic", r), zap.Stack("stack"))
			observer.IncFramesFailed(string(frameType), consumerType)
			observer.IncFrameAction(string(frameType), consumerType, "panic_nak")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error("Failed to NAK frame after panic", zap.Error(nakErr))
			}
		}
	}()

	observer.IncFramesReceived(string(frameType), consumerType)

	md, err := msg.Metadata()
	if err != nil {
		log.Error("Failed to read frame metadata", zap.Error(err))
		observer.IncFramesFailed(string(frameType), consumerType)
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error("Failed to NAK frame", zap.Error(nakErr))
		}
		return
	}

	meta := &model.FrameMetadata{
		Subject:        subject,
		Stream:         md.Stream,
		Consumer:       md.Consumer,
		StreamSequence: md.Sequence.Stream,
		NumDelivered:   md.NumDelivered,
		Timestamp:      md.Timestamp,
	}
	if header != nil {
		meta.MessageID = header.Get(nats.MsgIdHdr)
	}
	if meta.MessageID == "" {
		meta.MessageID = fmt.Sprintf("%s-%d", md.Stream, md.Sequence.Stream)
	}

	log = log.With(
		zap.String("nats_message_id", meta.MessageID),
		zap.Uint64("stream_sequence", meta.StreamSequence),
		zap.Uint64("num_delivered", meta.NumDelivered),
	)
	ctx := logger.WithLogger(c.ctx, log)

	processingErr := c.router.Route(ctx, meta, data)
	action, delay := determineAckNakAction(processingErr, meta.NumDelivered, c.cfg.MaxDeliver, c.cfg.NakBaseDelay, c.cfg.NakMaxDelay)
	observer.IncFrameAction(string(frameType), consumerType, action.String())

	switch action {
	case ActionAck:
		log.Debug("Frame processed", zap.Duration("duration", time.Since(startTime)))
		observer.IncFramesProcessed(string(frameType), consumerType)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK frame", zap.Error(ackErr))
		}
	case ActionNakDelay:
		log.Info("NAKing frame for redelivery",
			zap.Error(processingErr),
			zap.Int("max_deliver", c.cfg.MaxDeliver),
			zap.Duration("nak_delay", delay),
		)
		observer.IncFramesFailed(string(frameType), consumerType)
		if nakErr := msg.NakWithDelay(delay); nakErr != nil {
			log.Error("Failed to NAK frame with delay", zap.Error(nakErr))
		}
	case ActionTerm:
		log.Warn("Terminating frame",
			zap.Error(processingErr),
			zap.Bool("retryable", apperrors.IsRetryable(processingErr)),
			zap.Int("max_deliver", c.cfg.MaxDeliver),
		)
		observer.IncFramesFailed(string(frameType), consumerType)
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to TERM frame", zap.Error(termErr))
		}
	}
}

type antsLoggerAdapter struct {
	logger *zap.Logger
}

func newAntsLoggerAdapter(logger *zap.Logger) *antsLoggerAdapter {
	return &antsLoggerAdapter{logger: logger}
}

func (a *antsLoggerAdapter) Printf(format string, args ...interface{}) {
	a.logger.Info(fmt.Sprintf(format, args...))
}
