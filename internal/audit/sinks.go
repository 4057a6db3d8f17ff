package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, e Event) error {
	s.log.InfoContext(ctx, "audit",
		"type", e.Type,
		"invoice", e.InvoiceNumber,
		"buyer_email", e.BuyerEmail,
		"product_slug", e.ProductSlug,
		"status", e.Status,
		"event_key", e.EventKey,
		"detail", e.Detail,
		"at", e.At,
	)
	return nil
}

// RedisSink appends events to a capped redis stream.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisSink(rdb *redis.Client, stream string) *RedisSink {
	return &RedisSink{rdb: rdb, stream: stream, maxLen: 100000}
}

func (s *RedisSink) Write(ctx context.Context, e Event) error {
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: streamValues(e),
	}).Err()
}

func streamValues(e Event) map[string]interface{} {
	return map[string]interface{}{
		"type":         e.Type,
		"invoice":      e.InvoiceNumber,
		"buyer_email":  e.BuyerEmail,
		"product_slug": e.ProductSlug,
		"status":       e.Status,
		"event_key":    e.EventKey,
		"detail":       e.Detail,
		"at":           e.At.UTC().Format(time.RFC3339Nano),
	}
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
