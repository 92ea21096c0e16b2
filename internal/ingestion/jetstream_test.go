package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	clientmock "gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream/mock"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

type fakeAcker struct {
	md          *nats.MsgMetadata
	mdErr       error
	acked       bool
	naked       bool
	termed      bool
	nakDelay    time.Duration
	delayedNaks int
}

func (f *fakeAcker) Metadata() (*nats.MsgMetadata, error) { return f.md, f.mdErr }
func (f *fakeAcker) Ack(...nats.AckOpt) error            { f.acked = true; return nil }
func (f *fakeAcker) Nak(...nats.AckOpt) error            { f.naked = true; return nil }
func (f *fakeAcker) Term(...nats.AckOpt) error           { f.termed = true; return nil }
func (f *fakeAcker) NakWithDelay(d time.Duration, _ ...nats.AckOpt) error {
	f.nakDelay = d
	f.delayedNaks++
	return nil
}

func delivered(n uint64) *fakeAcker {
	return &fakeAcker{md: &nats.MsgMetadata{
		Stream:       "CHAT_INBOUND",
		Consumer:     "chat-delivery-inbound",
		NumDelivered: n,
		Sequence:     nats.SequencePair{Stream: 41, Consumer: 3},
	}}
}

func testConsumerConfig() config.ConsumerNatsConfig {
	return config.ConsumerNatsConfig{
		Enabled:      true,
		MaxAge:       7,
		Stream:       "CHAT_INBOUND",
		Consumer:     "chat-delivery-inbound",
		QueueGroup:   "chat-delivery",
		SubjectList:  []string{"chat.inbound.>"},
		MaxDeliver:   3,
		NakBaseDelay: time.Second,
		NakMaxDelay:  30 * time.Second,
	}
}

func newTestConsumer(t *testing.T, client *clientmock.ClientMock, router RouterInterface) *InboundConsumer {
	logger.Log = zaptest.NewLogger(t)
	c, err := NewInboundConsumer(client, router, testConsumerConfig(), config.WorkerPoolConfig{PoolSize: 2, MaxBlock: 10})
	require.NoError(t, err)
	t.Cleanup(func() { c.pool.Release() })
	return c
}

func TestDetermineAckNakAction(t *testing.T) {
	retryable := apperrors.NewRetryable(apperrors.ErrDatabase, "append")
	fatal := apperrors.NewFatal(apperrors.ErrValidation, "bad frame")

	tests := []struct {
		name         string
		err          error
		numDelivered uint64
		wantAction   AckNakAction
		wantDelay    time.Duration
	}{
		{name: "success", err: nil, numDelivered: 1, wantAction: ActionAck},
		{name: "fatal", err: fatal, numDelivered: 1, wantAction: ActionTerm},
		{name: "unclassified counts as fatal", err: errors.New("?"), numDelivered: 1, wantAction: ActionTerm},
		{name: "first retry", err: retryable, numDelivered: 1, wantAction: ActionNakDelay, wantDelay: time.Second},
		{name: "second retry doubles", err: retryable, numDelivered: 2, wantAction: ActionNakDelay, wantDelay: 2 * time.Second},
		{name: "deliveries exhausted", err: retryable, numDelivered: 5, wantAction: ActionTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, delay := determineAckNakAction(tt.err, tt.numDelivered, 5, time.Second, 30*time.Second)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantDelay, delay)
		})
	}
}

func TestDetermineAckNakAction_CapsDelay(t *testing.T) {
	retryable := apperrors.NewRetryable(apperrors.ErrTimeout, "slow")
	action, delay := determineAckNakAction(retryable, 9, 0, time.Second, 10*time.Second)
	assert.Equal(t, ActionNakDelay, action)
	assert.Equal(t, 10*time.Second, delay)
}

func TestInboundConsumer_Setup(t *testing.T) {
	client := new(clientmock.ClientMock)
	c := newTestConsumer(t, client, NewRouter())

	client.On("SetupStream", mock.Anything, mock.MatchedBy(func(cfg *nats.StreamConfig) bool {
		return cfg.Name == "CHAT_INBOUND" &&
			assert.ObjectsAreEqual([]string{"chat.inbound.>"}, cfg.Subjects) &&
			cfg.MaxAge == 7*24*time.Hour &&
			cfg.Storage == nats.FileStorage
	})).Return(nil).Once()
	client.On("SetupConsumer", mock.Anything, "CHAT_INBOUND", mock.MatchedBy(func(cfg *nats.ConsumerConfig) bool {
		return cfg.Durable == "chat-delivery-inbound" &&
			cfg.DeliverGroup == "chat-delivery" &&
			cfg.AckPolicy == nats.AckExplicitPolicy &&
			cfg.MaxDeliver == 3 &&
			cfg.DeliverSubject != ""
	})).Return(nil).Once()

	require.NoError(t, c.Setup())
	client.AssertExpectations(t)
}

func TestInboundConsumer_SetupStreamError(t *testing.T) {
	client := new(clientmock.ClientMock)
	c := newTestConsumer(t, client, NewRouter())
	client.On("SetupStream", mock.Anything, mock.Anything).Return(apperrors.ErrNATS).Once()

	err := c.Setup()
	assert.ErrorIs(t, err, apperrors.ErrNATS)
	client.AssertNotCalled(t, "SetupConsumer", mock.Anything, mock.Anything, mock.Anything)
}

func TestInboundConsumer_StartSubscribesToBoundConsumer(t *testing.T) {
	client := new(clientmock.ClientMock)
	c := newTestConsumer(t, client, NewRouter())
	client.On("SubscribePush", "", "chat-delivery-inbound", "chat-delivery", "CHAT_INBOUND", mock.Anything).
		Return(nil, nil).Once()

	require.NoError(t, c.Start())
	client.AssertExpectations(t)
}

func TestInboundConsumer_StartError(t *testing.T) {
	client := new(clientmock.ClientMock)
	c := newTestConsumer(t, client, NewRouter())
	client.On("SubscribePush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNATS).Once()

	assert.ErrorIs(t, c.Start(), apperrors.ErrNATS)
}

func TestInboundConsumer_HandleMessage(t *testing.T) {
	subject := model.InboundSubject(12, model.FrameSendMessage)

	tests := []struct {
		name        string
		handlerErr  error
		delivered   uint64
		check       func(t *testing.T, a *fakeAcker)
	}{
		{
			name:      "ack on success",
			delivered: 1,
			check: func(t *testing.T, a *fakeAcker) {
				assert.True(t, a.acked)
				assert.False(t, a.termed)
			},
		},
		{
			name:       "nak retryable with delay",
			handlerErr: apperrors.NewRetryable(apperrors.ErrDatabase, "append"),
			delivered:  2,
			check: func(t *testing.T, a *fakeAcker) {
				assert.False(t, a.acked)
				assert.Equal(t, 1, a.delayedNaks)
				assert.Equal(t, 2*time.Second, a.nakDelay)
			},
		},
		{
			name:       "term retryable on last delivery",
			handlerErr: apperrors.NewRetryable(apperrors.ErrDatabase, "append"),
			delivered:  3,
			check: func(t *testing.T, a *fakeAcker) {
				assert.True(t, a.termed)
				assert.Zero(t, a.delayedNaks)
			},
		},
		{
			name:       "term fatal",
			handlerErr: apperrors.NewFatal(apperrors.ErrNotFound, "thread"),
			delivered:  1,
			check: func(t *testing.T, a *fakeAcker) {
				assert.True(t, a.termed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter()
			var gotMeta *model.FrameMetadata
			router.Register(model.FrameSendMessage, func(ctx context.Context, ft model.FrameType, md *model.FrameMetadata, raw []byte) error {
				gotMeta = md
				return tt.handlerErr
			})
			c := newTestConsumer(t, new(clientmock.ClientMock), router)

			a := delivered(tt.delivered)
			header := nats.Header{}
			header.Set(nats.MsgIdHdr, "frame-1")
			c.handleMessage(subject, header, []byte(`{"content":"hi"}`), a)

			require.NotNil(t, gotMeta)
			assert.Equal(t, "frame-1", gotMeta.MessageID)
			assert.Equal(t, subject, gotMeta.Subject)
			assert.Equal(t, uint64(41), gotMeta.StreamSequence)
			tt.check(t, a)
		})
	}
}

func TestInboundConsumer_HandleMessageDerivesMessageID(t *testing.T) {
	router := NewRouter()
	var gotID string
	router.Register(model.FrameMarkRead, func(ctx context.Context, ft model.FrameType, md *model.FrameMetadata, raw []byte) error {
		gotID = md.MessageID
		return nil
	})
	c := newTestConsumer(t, new(clientmock.ClientMock), router)

	c.handleMessage(model.InboundSubject(3, model.FrameMarkRead), nil, nil, delivered(1))
	assert.Equal(t, "CHAT_INBOUND-41", gotID)
}

func TestInboundConsumer_HandleMessageMetadataError(t *testing.T) {
	c := newTestConsumer(t, new(clientmock.ClientMock), NewRouter())
	a := &fakeAcker{mdErr: nats.ErrNotJSMessage}

	c.handleMessage(model.InboundSubject(3, model.FrameMarkRead), nil, nil, a)
	assert.True(t, a.naked)
	assert.False(t, a.acked)
}

func TestInboundConsumer_HandleMessageRecoversPanic(t *testing.T) {
	router := NewRouter()
	router.Register(model.FrameSessionEnd, func(context.Context, model.FrameType, *model.FrameMetadata, []byte) error {
		panic("nil session")
	})
	c := newTestConsumer(t, new(clientmock.ClientMock), router)
	a := delivered(1)

	assert.NotPanics(t, func() {
		c.handleMessage(model.InboundSubject(3, model.FrameSessionEnd), nil, nil, a)
	})
	assert.True(t, a.naked)
	assert.False(t, a.acked)
}

func TestInboundConsumer_StopWithoutStart(t *testing.T) {
	c := newTestConsumer(t, new(clientmock.ClientMock), NewRouter())
	assert.NotPanics(t, c.Stop)
}
