package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"

	"portfolio-backend/internal/analyses"
	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/apperr"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/events"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	startRetryBase         = 500 * time.Millisecond
	startRetryCap          = 30 * time.Second
)

// newStartBackoff paces retries of a request that failed on the store. A committed offset
// covers every earlier message of the partition, so a failed request is retried in place
// instead of being skipped.
var newStartBackoff = func() retry.Backoff {
	return retry.WithCappedDuration(startRetryCap, retry.WithJitterPercent(10, retry.NewExponential(startRetryBase)))
}

// The worker consumes analysis requests from Kafka and runs them with the same
// services as the API. A Redis lock keeps the one-live-job rule across processes.
func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		telemetry.Error("telemetry.init_failed", map[string]any{"error": err})
	}
	defer telemetry.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		telemetry.Error("worker.kafka_brokers_missing", nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"error": err})
		os.Exit(1)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaRequestTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()

	telemetry.Info("worker.started", map[string]any{
		"topic": cfg.KafkaRequestTopic,
		"group": cfg.KafkaGroupID,
	})
	consume(ctx, reader, app.AnalysesService)

	telemetry.Info("worker.shutdown", map[string]any{"timeout": defaultShutdownTimeout.String()})
	done := make(chan struct{})
	go func() {
		app.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(defaultShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type analysisStarter interface {
	Start(ctx context.Context, companyRef string) (analyses.Job, error)
}

func consume(ctx context.Context, reader messageReader, starter analysisStarter) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			telemetry.Error("worker.fetch_failed", map[string]any{"error": err})
			continue
		}
		handleMessage(ctx, reader, starter, msg)
	}
}

// handleMessage starts the requested analysis. Messages that can never succeed are committed
// so they are not redelivered; store failures are retried until they succeed or ctx ends.
func handleMessage(ctx context.Context, reader messageReader, starter analysisStarter, msg kafka.Message) {
	fields := baseFields(msg)
	req, err := events.DecodeAnalysisRequest(msg.Value)
	if err != nil {
		fields["error"] = err
		telemetry.Error("worker.request.decode_failed", fields)
		commit(ctx, reader, msg, "invalid")
		return
	}
	fields["company"] = req.Company
	if req.RequestID != "" {
		fields["request_id"] = req.RequestID
	}

	reqCtx := telemetry.WithRequestID(ctx, req.RequestID)
	var job analyses.Job
	attempt := 0
	err = retry.Do(reqCtx, newStartBackoff(), func(ctx context.Context) error {
		attempt++
		started, err := starter.Start(ctx, req.Company)
		if err == nil {
			job = started
			return nil
		}
		if permanent(err) {
			return err
		}
		metrics.IncRequestConsumed("retried")
		telemetry.Warn("worker.request.retrying", map[string]any{
			"company": req.Company,
			"offset":  msg.Offset,
			"attempt": attempt,
			"error":   err,
		})
		return retry.RetryableError(err)
	})
	if err != nil {
		fields["error"] = err
		fields["code"] = apperr.Code(err)
		fields["attempts"] = attempt
		switch {
		case errors.Is(err, apperr.ErrConflict):
			telemetry.Warn("worker.request.already_running", fields)
			commit(ctx, reader, msg, "conflict")
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound):
			telemetry.Error("worker.request.rejected", fields)
			commit(ctx, reader, msg, "rejected")
		default:
			// Only shutdown gets here; the request stays uncommitted for the next consumer.
			telemetry.Error("worker.request.abandoned", fields)
			metrics.IncRequestConsumed("failed")
		}
		return
	}

	fields["job_id"] = job.ID
	telemetry.Info("worker.request.started", fields)
	commit(ctx, reader, msg, "started")
}

func permanent(err error) bool {
	return errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound)
}

func commit(ctx context.Context, reader messageReader, msg kafka.Message, outcome string) {
	metrics.IncRequestConsumed(outcome)
	if err := reader.CommitMessages(ctx, msg); err != nil {
		fields := baseFields(msg)
		fields["error"] = err
		telemetry.Error("worker.commit_failed", fields)
	}
}

func baseFields(msg kafka.Message) map[string]any {
	return map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}
}
