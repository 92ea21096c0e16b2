package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// Sink delivers an event addressed to a topic.
type Sink interface {
	Name() string
	Publish(ctx context.Context, topic string, event model.Event) error
}

// Publisher is the subset of *nats.Conn the NATS sink needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATSSink republishes events on subjects derived from their topic.
type NATSSink struct {
	pub    Publisher
	prefix string
}

// NewNATSSink creates a sink publishing under prefix (e.g. "chat").
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "chat"
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Name() string {
	return "nats"
}

func (s *NATSSink) Publish(_ context.Context, topic string, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.pub.Publish(model.TopicToSubject(s.prefix, topic), data); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrNATS, err)
	}
	return nil
}

// Broadcaster fans each event out to the thread topic and the channel topic on every sink.
// Sink failures are logged and counted; they never reach the caller.
type Broadcaster struct {
	sinks []Sink
}

// NewBroadcaster wires the given sinks; nil sinks are skipped.
func NewBroadcaster(sinks ...Sink) *Broadcaster {
	b := &Broadcaster{}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Broadcast delivers event to its topics and returns once every sink has been attempted.
func (b *Broadcaster) Broadcast(ctx context.Context, event model.Event) {
	topics := []string{model.ThreadTopic(event.ThreadID)}
	if event.ChannelID > 0 {
		topics = append(topics, model.ChannelTopic(event.ChannelID))
	}

	iter.ForEach(b.sinks, func(sink *Sink) {
		s := *sink
		for _, topic := range topics {
			err := safePublish(ctx, s, topic, event)
			observer.IncBroadcast(s.Name(), string(event.Type), err)
			if err != nil {
				logger.FromContext(ctx).Warn("Broadcast failed",
					zap.String("sink", s.Name()),
					zap.String("topic", topic),
					zap.String("event_type", string(event.Type)),
					zap.Int64("message_id", event.ID),
					zap.Error(err))
			}
		}
	})
}

func safePublish(ctx context.Context, s Sink, topic string, event model.Event) error {
	return utils.WrapWithContextRecovery(func(ctx context.Context) error {
		return s.Publish(ctx, topic, event)
	})(ctx)
}
