package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/redis/go-redis/v9"
)

const (
	metricsTTL     = 7 * 24 * time.Hour
	observeTimeout = 500 * time.Millisecond
	maxHours       = 7 * 24
)

type Store struct {
	redis  *redis.Client
	clock  clock.Clock
	logger *slog.Logger
}

func NewStore(redisClient *redis.Client, clk clock.Clock, logger *slog.Logger) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		redis:  redisClient,
		clock:  clk,
		logger: logger.With("component", "telemetry"),
	}
}

func (s *Store) hourKey(cameraID string) string {
	now := s.clock.Now().UTC()
	return MetricsRedisKey(cameraID, now.Format("2006-01-02"), now.Hour())
}

func (s *Store) IncrementMetric(ctx context.Context, cameraID string, field string, value int64) error {
	key := s.hourKey(cameraID)

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) RecordLatency(ctx context.Context, cameraID string, latencyMs int64) error {
	key := s.hourKey(cameraID)

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, fieldTotalLatency, latencyMs)
	pipe.HIncrBy(ctx, key, fieldLatencyCount, 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Record counts one decision against the current hour in a single round trip.
func (s *Store) Record(ctx context.Context, d control.Decision) error {
	cameraID := string(d.CameraID)
	key := s.hourKey(cameraID)

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, FieldRequests, 1)
	for _, field := range outcomeFields(d) {
		pipe.HIncrBy(ctx, key, field, 1)
	}
	if d.Late {
		pipe.HIncrBy(ctx, key, FieldSuperseded, 1)
	}
	if d.Outcome != control.OutcomeFailed {
		pipe.HIncrBy(ctx, key, fieldTotalLatency, d.LatencyMs)
		pipe.HIncrBy(ctx, key, fieldLatencyCount, 1)
	}
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func outcomeFields(d control.Decision) []string {
	switch d.Outcome {
	case string(action.OutcomeApplied):
		return []string{FieldApplied}
	case string(action.OutcomeHold):
		return []string{FieldHolds}
	case string(action.OutcomeUnrecognized):
		return []string{FieldUnrecognized}
	case string(action.OutcomeNoReference):
		return []string{FieldNoReference}
	case control.OutcomeStale:
		return []string{FieldStale}
	case control.OutcomeFailed:
		switch d.FailureKind {
		case vision.FailureTransport:
			return []string{FieldFailures, FieldTransportFailures}
		case vision.FailureParse:
			return []string{FieldFailures, FieldParseFailures}
		}
		return []string{FieldFailures}
	}
	return nil
}

func (s *Store) ObserveDecision(d control.Decision) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), observeTimeout)
		defer cancel()
		if err := s.Record(ctx, d); err != nil {
			s.logger.Warn("failed to record metrics", "camera_id", d.CameraID, "error", err)
		}
	}()
}

// GetMetrics returns the hourly buckets for the last hours hours, newest
// first, skipping hours with no traffic.
func (s *Store) GetMetrics(ctx context.Context, cameraID string, hours int) ([]*Metrics, error) {
	if hours <= 0 {
		hours = 1
	}
	if hours > maxHours {
		hours = maxHours
	}

	now := s.clock.Now().UTC()
	var metrics []*Metrics

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := MetricsRedisKey(cameraID, t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Metrics{
			CameraID: cameraID,
			Date:     t.Format("2006-01-02"),
			Hour:     t.Hour(),
		}

		m.Requests = parseCount(data, FieldRequests)
		m.Applied = parseCount(data, FieldApplied)
		m.Holds = parseCount(data, FieldHolds)
		m.Unrecognized = parseCount(data, FieldUnrecognized)
		m.NoReference = parseCount(data, FieldNoReference)
		m.Failures = parseCount(data, FieldFailures)
		m.TransportFailures = parseCount(data, FieldTransportFailures)
		m.ParseFailures = parseCount(data, FieldParseFailures)
		m.Stale = parseCount(data, FieldStale)
		m.Superseded = parseCount(data, FieldSuperseded)

		totalLatency := parseCount(data, fieldTotalLatency)
		latencyCount := parseCount(data, fieldLatencyCount)
		if latencyCount > 0 {
			m.AvgLatencyMs = totalLatency / latencyCount
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}

func parseCount(data map[string]string, field string) int64 {
	v, ok := data[field]
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
