// Package redisstats periodically exports a bus health snapshot to a Redis hash
// so fleet dashboards can read every process's stats from one place.
package redisstats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/trickstertwo/xlog"
	"github.com/trickstertwo/xmsg"
	"go.uber.org/multierr"
)

// Source is the part of the bus the reporter reads.
type Source interface {
	Health(ctx context.Context) xmsg.HealthStatus
}

// Reporter writes Source snapshots with HSET + EXPIRE.
type Reporter struct {
	client redis.UniversalClient
	source Source
	cfg    Config
	clock  clock.Clock
	logger *xlog.Logger
	owned  bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger reports failed writes to l.
func WithLogger(l *xlog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// WithClock drives the report ticker from c.
func WithClock(c clock.Clock) Option {
	return func(r *Reporter) { r.clock = c }
}

// WithClient reuses an existing client; Close then leaves it open.
func WithClient(c redis.UniversalClient) Option {
	return func(r *Reporter) { r.client = c }
}

// New builds a Reporter for src.
func New(cfg Config, src Source, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("redisstats: source required")
	}
	r := &Reporter{source: src, cfg: cfg, clock: clock.New()}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	if r.client == nil {
		r.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		r.owned = true
	}
	return r, nil
}

// Report writes one snapshot.
func (r *Reporter) Report(ctx context.Context) error {
	fields := Fields(r.source.Health(ctx))

	pipe := r.client.TxPipeline()
	hset := pipe.HSet(ctx, r.cfg.Key, fields)
	expire := pipe.Expire(ctx, r.cfg.Key, r.cfg.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return multierr.Combine(err, hset.Err(), expire.Err())
	}
	return nil
}

// Run reports every Interval until ctx is done. Failed writes are logged and retried
// on the next tick.
func (r *Reporter) Run(ctx context.Context) error {
	t := r.clock.Ticker(r.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := r.Report(ctx); err != nil && r.logger != nil {
				r.logger.Warn().Err(err).Str("key", r.cfg.Key).Msg("redisstats: report failed")
			}
		}
	}
}

// Close releases the client when the Reporter created it.
func (r *Reporter) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

// Fields flattens a health status into hash fields.
func Fields(h xmsg.HealthStatus) map[string]any {
	s := h.Stats
	return map[string]any{
		"status":                  h.Status,
		"score":                   strconv.Itoa(h.Score),
		"messages_sent":           strconv.FormatUint(s.MessagesSent, 10),
		"messages_delivered":      strconv.FormatUint(s.MessagesDelivered, 10),
		"messages_dropped":        strconv.FormatUint(s.MessagesDropped, 10),
		"errors_caught":           strconv.FormatUint(s.ErrorsCaught, 10),
		"large_messages_warnings": strconv.FormatUint(s.LargeMessagesWarnings, 10),
		"requests_sent":           strconv.FormatUint(s.RequestsSent, 10),
		"requests_completed":      strconv.FormatUint(s.RequestsCompleted, 10),
		"requests_failed":         strconv.FormatUint(s.RequestsFailed, 10),
		"requests_timed_out":      strconv.FormatUint(s.RequestsTimedOut, 10),
		"pending_requests":        strconv.Itoa(s.PendingRequests),
		"listeners":               strconv.Itoa(s.TotalListeners),
		"queue_size":              strconv.Itoa(s.QueueSize),
		"pressure":                strconv.FormatFloat(s.Pressure, 'f', 4, 64),
		"uptime":                  s.UptimeHuman,
		"success_rate":            s.Performance.RequestSuccessRate,
		"updated_at":              h.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
