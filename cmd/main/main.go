package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/healthcheck"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/httpapi"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/realtime"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/storage"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

func main() {
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting Daisi Chat Delivery",
		zap.String("environment", cfg.Environment),
		zap.Int("api_port", cfg.Server.Port),
		zap.String("nats_url", cfg.NATS.URL),
	)

	postgresRepo, err := initPostgresRepo(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}
	repos := storage.NewRepositories(postgresRepo)

	policy, err := bizhours.NewPolicy(cfg.BusinessHours)
	if err != nil {
		logger.Log.Fatal("Invalid business hours configuration", zap.Error(err))
	}
	var holidays bizhours.HolidayChecker = bizhours.AlwaysOpen{}
	if cfg.BusinessHours.HolidaysEnabled {
		holidays = postgresRepo
	}
	gate := bizhours.NewGate(policy, holidays)

	redisClient, err := initRedis(cfg.Redis.URL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	// Assigned only when configured so a missing client stays a nil interface.
	var throttleClient redis.Cmdable
	if redisClient != nil {
		throttleClient = redisClient
	}
	throttle := usecase.NewAutoReplyThrottle(throttleClient, cfg.AutoReply.Window)

	var jsClient *jetstream.Client
	if cfg.NATS.URL != "" {
		jsClient, err = jetstream.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
	} else {
		logger.Log.Warn("NATS URL not configured; inbound frames and NATS broadcast are disabled")
	}

	hub := realtime.NewHub(cfg.Stream.SubscriberBuffer)
	sinks := []realtime.Sink{hub}
	if jsClient != nil && cfg.NATS.PublishEnabled {
		sinks = append(sinks, realtime.NewNATSSink(jsClient, cfg.NATS.BroadcastPrefix))
	}
	broadcaster := realtime.NewBroadcaster(sinks...)

	files, err := filestore.NewLocalStore(cfg.FileStorage.BaseDir, cfg.FileStorage.PublicBaseURL, cfg.FileStorage.MaxUploadSize)
	if err != nil {
		logger.Log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	service := usecase.NewChatService(repos, gate, broadcaster, throttle, files, usecase.Options{
		WelcomeEnabled: cfg.Welcome.Enabled,
		WelcomeMessage: cfg.Welcome.Message,
	})

	var processor *usecase.Processor
	if jsClient != nil && cfg.NATS.Inbound.Enabled {
		processor, err = usecase.NewProcessor(service, jsClient, cfg)
		if err != nil {
			logger.Log.Fatal("Failed to create inbound processor", zap.Error(err))
		}
		if err := processor.Setup(); err != nil {
			logger.Log.Fatal("Failed to set up inbound processor", zap.Error(err))
		}
	}

	authorizer := httpapi.NewStaticKeyAuthorizer(cfg.Auth.APIKeys)
	if !authorizer.Enabled() {
		logger.Log.Warn("No API keys configured; the chat API is unauthenticated")
	}
	apiServer := httpapi.NewServer(cfg, httpapi.Deps{Service: service, Hub: hub, Auth: authorizer})

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.AddCheck("postgres", postgresRepo.Ping)
	if jsClient != nil {
		healthServer.AddCheck("nats", func(context.Context) error {
			if !jsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}
	if redisClient != nil {
		healthServer.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	}
	healthServer.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	utils.SafeGo(func() {
		if err := apiServer.Start(); err != nil {
			logger.Log.Error("HTTP API stopped unexpectedly, initiating shutdown", zap.Error(err))
			select {
			case sigChan <- syscall.SIGTERM:
			default:
			}
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("Panic in HTTP API server", zap.Any("panic", r), zap.ByteString("stack", stack))
	})

	if processor != nil {
		if err := processor.Start(); err != nil {
			logger.Log.Fatal("Failed to start inbound processor", zap.Error(err))
		}
	}

	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", timeout))

	// The API and the inbound consumer stop first so no new writes start while connections close.
	var front sync.WaitGroup
	front.Add(3)
	stopComponent(&front, "HTTP API", func() error { return apiServer.Shutdown(shutdownCtx) })
	stopComponent(&front, "inbound processor", func() error {
		if processor != nil {
			processor.Stop()
		}
		return nil
	})
	stopComponent(&front, "health check server", func() error { return healthServer.Stop(shutdownCtx) })

	if !waitOrTimeout(shutdownCtx, &front) {
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
		return
	}

	var back sync.WaitGroup
	back.Add(1)
	stopComponent(&back, "connections", func() error {
		var errs []error
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
		if jsClient != nil {
			jsClient.Close()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("redis: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if waitOrTimeout(shutdownCtx, &back) {
		logger.Log.Info("[shutdown] All components stopped gracefully")
	} else {
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}
	logger.Log.Info("Daisi Chat Delivery shutdown complete")
}

// stopComponent runs stop on its own goroutine, logging duration, errors and panics. The
// deferred Done also runs when stop panics.
func stopComponent(wg *sync.WaitGroup, name string, stop func() error) {
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping " + name)
		start := time.Now()
		if err := stop(); err != nil {
			logger.Log.Error("[shutdown] Error stopping "+name, zap.Error(err))
			return
		}
		logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping "+name,
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})
}

func waitOrTimeout(ctx context.Context, wg *sync.WaitGroup) bool {
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		return true
	case <-ctx.Done():
		return false
	}
}

func initPostgresRepo(cfg *config.Config) (*storage.PostgresRepo, error) {
	if cfg.Database.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, storage.Options{
		AutoMigrate:  cfg.Database.PostgresAutoMigrate,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}
	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// initRedis returns nil when no URL is configured.
func initRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("Redis not reachable at startup; auto-reply throttle fails open", zap.Error(err))
	}
	logger.Log.Info("Initialized Redis client")
	return client, nil
}
