package worker

import (
	"context"
	"encoding/json"
	"time"

	"facturard/internal/domain/batches"
	"facturard/internal/infrastructure/metrics"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/pkg/logger"
)

// OutboxJob relays pending outbox messages until a batch comes back short.
func OutboxJob(relay *postgres.OutboxRelay, interval time.Duration, batchSize int) Job {
	return Job{
		Name:     "outbox_relay",
		Interval: interval,
		Run: func(ctx context.Context) error {
			for {
				n, err := relay.ProcessBatch(ctx)
				if err != nil {
					return err
				}
				if n < batchSize || ctx.Err() != nil {
					return nil
				}
			}
		},
	}
}

// LogDelivery is the outbox handler used when no broker is configured: it
// writes each event to the log as a structured line.
func LogDelivery(log *logger.Logger) postgres.OutboxHandler {
	log = log.WithComponent("outbox")
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		if !json.Valid(msg.Payload) {
			metrics.OutboxRelayed.WithLabelValues("invalid").Inc()
			return errInvalidPayload
		}
		log.WithContext(ctx).Infow("event",
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"owner_id", msg.OwnerID,
			"payload", json.RawMessage(msg.Payload),
		)
		metrics.OutboxRelayed.WithLabelValues("published").Inc()
		return nil
	})
}

// PurgeOutboxJob deletes published outbox messages past retention.
func PurgeOutboxJob(relay *postgres.OutboxRelay, interval, retention time.Duration, log *logger.Logger) Job {
	return Job{
		Name:     "outbox_purge",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := relay.PurgePublished(ctx, retention)
			if err != nil {
				return err
			}
			if n > 0 {
				log.WithContext(ctx).Infow("purged outbox messages", "count", n)
			}
			return nil
		},
	}
}

// CleanupJob wraps a cleanup function that reports deleted rows.
func CleanupJob[N int | int64](name string, interval time.Duration, fn func(context.Context) (N, error), log *logger.Logger) Job {
	return Job{
		Name:       name,
		Interval:   interval,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.WithContext(ctx).Infow("cleanup", "job", name, "count", n)
			}
			return nil
		},
	}
}

// LowStockSource lists batches running out of numbers.
type LowStockSource interface {
	LowStock(ctx context.Context, threshold int64) ([]*batches.Batch, error)
}

// LowStockJob publishes remaining numbers of low batches as a gauge and warns
// in the log so operators can request a new range from DGII in time.
func LowStockJob(src LowStockSource, threshold int64, interval time.Duration, log *logger.Logger) Job {
	return Job{
		Name:       "batch_low_stock",
		Interval:   interval,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			low, err := src.LowStock(ctx, threshold)
			if err != nil {
				return err
			}
			metrics.BatchRemaining.Reset()
			for _, b := range low {
				metrics.BatchRemaining.
					WithLabelValues(b.OwnerID.String(), string(b.DocumentType)).
					Set(float64(b.Remaining()))
				log.Warnw("numbering batch running low",
					"owner_id", b.OwnerID,
					"batch_id", b.ID,
					"document_type", b.DocumentType,
					"series", b.Series,
					"remaining", b.Remaining(),
				)
			}
			return nil
		},
	}
}
