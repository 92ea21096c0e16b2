//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/httpapi"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/realtime"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/storage"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

const welcomeText = "welcome to support"

var chatTables = []string{
	"chat_message",
	"chat_participant",
	"chat_session_log",
	"chat_setting",
	"chat_channel_setting",
	"chat_thread",
	"chat_channel",
}

// openGate keeps the desk open so no auto-reply interferes with message counts.
type openGate struct{}

func (openGate) IsOpen(context.Context, time.Time) bool { return true }
func (openGate) CurrentStatus(context.Context) bizhours.Status {
	return bizhours.Status{Open: true, Message: "open"}
}
func (openGate) ClosedMessage() string { return "closed" }

// closedGate keeps the desk closed so every USER message draws an auto-reply.
type closedGate struct{}

func (closedGate) IsOpen(context.Context, time.Time) bool { return false }
func (closedGate) CurrentStatus(context.Context) bizhours.Status {
	return bizhours.Status{Open: false, Message: "closed"}
}
func (closedGate) ClosedMessage() string { return "closed" }

// ChatDeliverySuite runs the whole service in-process against real Postgres and NATS.
type ChatDeliverySuite struct {
	suite.Suite

	Ctx    context.Context
	cancel context.CancelFunc

	Postgres    testcontainers.Container
	PostgresDSN string
	NATS        testcontainers.Container
	NATSURL     string

	repo      *storage.PostgresRepo
	service   *usecase.ChatService
	jsClient  *jetstream.Client
	hub       *realtime.Hub
	processor *usecase.Processor
	api       *httptest.Server
	db        *sql.DB
}

func TestChatDeliverySuite(t *testing.T) {
	suite.Run(t, new(ChatDeliverySuite))
}

// SetupSuite starts the containers and wires the service the same way cmd/main does.
func (s *ChatDeliverySuite) SetupSuite() {
	s.Ctx, s.cancel = context.WithCancel(context.Background())
	logger.Log = zaptest.NewLogger(s.T()).Named("ChatDeliverySuite")
	startTime := time.Now()

	var err error
	s.Postgres, s.PostgresDSN, err = startPostgres(s.Ctx)
	s.Require().NoError(err)
	s.NATS, s.NATSURL, err = startNATS(s.Ctx)
	s.Require().NoError(err)

	s.repo, err = storage.NewPostgresRepo(s.PostgresDSN, storage.Options{AutoMigrate: true, MaxOpenConns: 5, MaxIdleConns: 2})
	s.Require().NoError(err)
	s.db, err = sql.Open("pgx", s.PostgresDSN)
	s.Require().NoError(err)

	s.jsClient, err = jetstream.NewClient(s.NATSURL)
	s.Require().NoError(err)

	cfg := testConfig(s.NATSURL)
	cfg.FileStorage.BaseDir = s.T().TempDir()
	s.hub = realtime.NewHub(cfg.Stream.SubscriberBuffer)
	broadcaster := realtime.NewBroadcaster(s.hub, realtime.NewNATSSink(s.jsClient, cfg.NATS.BroadcastPrefix))

	files, err := filestore.NewLocalStore(cfg.FileStorage.BaseDir, cfg.FileStorage.PublicBaseURL, cfg.FileStorage.MaxUploadSize)
	s.Require().NoError(err)

	s.service = usecase.NewChatService(storage.NewRepositories(s.repo), openGate{}, broadcaster, usecase.NoThrottle{}, files, usecase.Options{
		WelcomeEnabled: true,
		WelcomeMessage: welcomeText,
	})

	s.processor, err = usecase.NewProcessor(s.service, s.jsClient, cfg)
	s.Require().NoError(err)
	s.Require().NoError(s.processor.Setup())
	s.Require().NoError(s.processor.Start())

	apiServer := httpapi.NewServer(cfg, httpapi.Deps{Service: s.service, Hub: s.hub})
	s.api = httptest.NewServer(apiServer.Handler())

	log.Printf("ChatDeliverySuite setup complete in %v", time.Since(startTime))
}

// TearDownSuite stops the service and terminates the containers in reverse order.
func (s *ChatDeliverySuite) TearDownSuite() {
	if s.api != nil {
		s.api.Close()
	}
	if s.processor != nil {
		s.processor.Stop()
	}
	if s.jsClient != nil {
		s.jsClient.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.repo != nil {
		if err := s.repo.Close(s.Ctx); err != nil {
			s.T().Logf("Error closing repository: %v", err)
		}
	}
	if s.NATS != nil {
		if err := s.NATS.Terminate(s.Ctx); err != nil {
			s.T().Logf("Error terminating NATS container: %v", err)
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Terminate(s.Ctx); err != nil {
			s.T().Logf("Error terminating PostgreSQL container: %v", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// SetupTest empties every chat table.
func (s *ChatDeliverySuite) SetupTest() {
	for _, table := range chatTables {
		_, err := s.db.ExecContext(s.Ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		s.Require().NoError(err, "truncate %s", table)
	}
}

func testConfig(natsURL string) *config.Config {
	cfg := &config.Config{}
	cfg.NATS.URL = natsURL
	cfg.NATS.BroadcastPrefix = "chat"
	cfg.NATS.PublishEnabled = true
	cfg.NATS.Inbound = config.ConsumerNatsConfig{
		Enabled:      true,
		MaxAge:       1,
		Stream:       "CHAT_INBOUND",
		Consumer:     "chat-delivery-inbound-it",
		QueueGroup:   "chat-delivery-it",
		SubjectList:  []string{"chat.inbound.>"},
		MaxDeliver:   2,
		NakBaseDelay: 100 * time.Millisecond,
		NakMaxDelay:  time.Second,
	}
	cfg.WorkerPools.Inbound = config.WorkerPoolConfig{PoolSize: 4, ExpiryTime: time.Minute}
	cfg.Stream.SubscriberBuffer = 16
	cfg.Stream.Heartbeat = time.Hour
	cfg.FileStorage.PublicBaseURL = "/files"
	cfg.FileStorage.MaxUploadSize = 1 << 20
	return cfg
}
