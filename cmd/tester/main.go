package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/jetstream"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// frameTask is one frame to generate and publish.
type frameTask struct {
	ThreadID  int64
	FrameType model.FrameType
}

// batchTask is a batch of frames handed to one worker.
type batchTask struct {
	Tasks     []frameTask
	Publisher framePublisher
}

type framePublisher interface {
	Publish(subject string, data []byte) error
}

const defaultBatchSize = 50

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	natsURL := flag.String("url", cfg.NATS.URL, "NATS server URL")
	threadsStr := flag.String("threads", "", "Comma-separated list of existing thread ids to send frames to")
	typesStr := flag.String("types", string(model.FrameSendMessage), "Comma-separated frame types (message.send, message.read, session.start, session.end)")
	rate := flag.Int("rate", 100, "Target frames per second (total)")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Number of frames to generate/publish per worker batch")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Inbound frame load generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -threads 1,2,3 [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Publishes synthetic client frames on %s.<threadId>.<type>.\n\n", model.InboundSubjectPrefix)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *batchSize <= 0 {
		*batchSize = defaultBatchSize
		fmt.Printf("Invalid batch size, using default: %d\n", defaultBatchSize)
	}
	if *rate <= 0 {
		fmt.Println("rate must be positive")
		os.Exit(2)
	}

	threadIDs, err := parseThreadIDs(*threadsStr)
	if err != nil {
		fmt.Println(err)
		flag.Usage()
		os.Exit(2)
	}
	frameTypes, err := parseFrameTypes(*typesStr)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := startMetricsServer(*metricsPort)
	var metricsWg sync.WaitGroup
	metricsWg.Add(1)
	go func() {
		defer metricsWg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}()

	logger.Log.Info("Starting frame load generator",
		zap.String("nats_url", *natsURL),
		zap.Int64s("threads", threadIDs),
		zap.String("types", *typesStr),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Int("batch_size", *batchSize),
	)

	natsClient, err := jetstream.NewClient(*natsURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to NATS", zap.String("url", *natsURL), zap.Error(err))
	}
	defer natsClient.Close()

	gofakeit.Seed(time.Now().UnixNano())

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		publishBatch(data.(batchTask), &wg)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runLoadLoop(ctx, *rate, *duration, *batchSize, threadIDs, frameTypes, natsClient, pool, &wg)
	}()

	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down...", zap.String("signal", sig.String()))
		cancel()
		<-loopDone
	case <-loopDone:
		logger.Log.Info("Load generation duration finished")
	}

	wg.Wait()
	cancel()
	metricsWg.Wait()
	logger.Log.Info("Load generator shutdown complete")
}

func parseThreadIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid thread id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one thread id is required")
	}
	return ids, nil
}

func parseFrameTypes(s string) ([]model.FrameType, error) {
	var types []model.FrameType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ft, ok := model.FrameTypeFromSubject("." + part)
		if !ok || string(ft) != part {
			return nil, fmt.Errorf("unsupported frame type %q", part)
		}
		types = append(types, ft)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("at least one frame type is required")
	}
	return types, nil
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()
	return server
}

// runLoadLoop paces frame generation at rate and hands full batches to the pool.
func runLoadLoop(ctx context.Context, rate int, duration time.Duration, batchSize int, threads []int64, types []model.FrameType, pub framePublisher, pool *ants.PoolWithFunc, wg *sync.WaitGroup) {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	counter := 0
	current := make([]frameTask, 0, batchSize)

	submit := func(batch []frameTask) {
		if len(batch) == 0 {
			return
		}
		wg.Add(len(batch))
		if err := pool.Invoke(batchTask{Tasks: batch, Publisher: pub}); err != nil {
			logger.Log.Warn("Failed to invoke worker pool for batch", zap.Int("batch_task_count", len(batch)), zap.Error(err))
			wg.Add(-len(batch))
			for _, t := range batch {
				observer.IncLoadgenFrame(string(t.FrameType), "error")
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			submit(current)
			return
		case <-durationTimer.C:
			submit(current)
			return
		case <-ticker.C:
			task := frameTask{
				ThreadID:  threads[counter%len(threads)],
				FrameType: types[counter%len(types)],
			}
			counter++
			observer.IncLoadgenFrame(string(task.FrameType), "attempted")

			current = append(current, task)
			if len(current) >= batchSize {
				submit(current)
				current = make([]frameTask, 0, batchSize)
			}
		}
	}
}

func publishBatch(batch batchTask, wg *sync.WaitGroup) {
	for _, t := range batch.Tasks {
		func(t frameTask) {
			defer wg.Done()
			subject := model.InboundSubject(t.ThreadID, t.FrameType)
			payload, err := json.Marshal(model.FakeFrame(t.ThreadID, t.FrameType))
			if err != nil {
				logger.Log.Error("Failed to marshal frame", zap.String("subject", subject), zap.Error(err))
				observer.IncLoadgenFrame(string(t.FrameType), "error")
				return
			}
			if err := batch.Publisher.Publish(subject, payload); err != nil {
				logger.Log.Error("Failed to publish frame", zap.String("subject", subject), zap.Error(err))
				observer.IncLoadgenFrame(string(t.FrameType), "error")
				return
			}
			observer.IncLoadgenFrame(string(t.FrameType), "published")
		}(t)
	}
}
