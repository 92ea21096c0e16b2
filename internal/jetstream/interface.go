package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
)

// ClientInterface is the NATS surface used by the inbound consumer, the broadcast sink
// and the readiness check.
type ClientInterface interface {
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error
	SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error
	SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error)

	// Publish is a core NATS publish; it satisfies realtime.Publisher.
	Publish(subject string, data []byte) error

	IsConnected() bool
	NatsConn() *nats.Conn
	Close()
}
