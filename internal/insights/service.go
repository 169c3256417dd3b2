package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"minerva/internal/domain/invocation"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Cache is the subset of the Redis client the service needs
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Timeframe is a named aggregation window
type Timeframe struct {
	Name   string
	Window time.Duration
	Bucket time.Duration
}

// ParseTimeframe resolves a timeframe name. Day-long windows bucket by
// hour, longer ones by day.
func ParseTimeframe(name string) (Timeframe, error) {
	switch name {
	case "24h":
		return Timeframe{Name: name, Window: 24 * time.Hour, Bucket: time.Hour}, nil
	case "7d":
		return Timeframe{Name: name, Window: 7 * 24 * time.Hour, Bucket: 24 * time.Hour}, nil
	case "30d":
		return Timeframe{Name: name, Window: 30 * 24 * time.Hour, Bucket: 24 * time.Hour}, nil
	default:
		return Timeframe{}, errors.Wrapf(errors.ErrInvalidInput, "unknown timeframe %q", name)
	}
}

// PeriodTrend is one bucket of a trend report. Deltas compare against the
// previous bucket and are nil on the first one.
type PeriodTrend struct {
	PeriodStart       time.Time `json:"period_start"`
	TotalCalls        uint64    `json:"total_calls"`
	SuccessRate       float64   `json:"success_rate"`
	AverageLatencyMs  float64   `json:"average_latency_ms"`
	AverageConfidence float64   `json:"average_confidence"`
	Deltas            *Deltas   `json:"deltas,omitempty"`
}

// Deltas are period-over-period changes, signed
type Deltas struct {
	CallVolume        int64   `json:"call_volume"`
	SuccessRate       float64 `json:"success_rate"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	AverageConfidence float64 `json:"average_confidence"`
}

// TrendReport is the result of a trend analysis over one tool
type TrendReport struct {
	ToolName  string        `json:"tool_name"`
	Timeframe string        `json:"timeframe"`
	Periods   []PeriodTrend `json:"periods"`
}

// Service answers aggregate questions about tool invocations. It sits
// entirely off the hot path; reads go to ClickHouse with a short Redis
// cache in front.
type Service struct {
	repo     invocation.Repository
	cache    Cache
	cacheTTL time.Duration
	log      *logger.Logger

	now func() time.Time
}

// NewService creates an insights service. Cache may be nil to disable
// caching.
func NewService(repo invocation.Repository, cache Cache, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      logger.Get().With("component", "insights"),
		now:      time.Now,
	}
}

// GetToolMetrics returns the windowed aggregate for a tool. ToolName and
// organizationID may be zero to aggregate across all tools or tenants.
func (s *Service) GetToolMetrics(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*invocation.ToolMetrics, error) {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("insights:metrics:%s:%s:%s", toolName, tf.Name, organizationID)
	if s.cache != nil {
		var cached invocation.ToolMetrics
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	until := s.now()
	metrics, err := s.repo.ToolMetrics(ctx, invocation.MetricsQuery{
		ToolName:       toolName,
		OrganizationID: organizationID,
		Since:          until.Add(-tf.Window),
		Until:          until,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate tool metrics")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, metrics, s.cacheTTL); err != nil {
			s.log.Warnf("Failed to cache metrics for %s: %v", cacheKey, err)
		}
	}
	return metrics, nil
}

// AnalyzePerformanceTrends buckets the window into sub-periods and reports
// each bucket's aggregate plus its delta versus the previous bucket, so a
// dashboard can flag regressions like a dropping success rate.
func (s *Service) AnalyzePerformanceTrends(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*TrendReport, error) {
	if toolName == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "tool name is required for trend analysis")
	}
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	until := s.now()
	aggs, err := s.repo.PeriodAggregates(ctx, invocation.TrendQuery{
		ToolName:       toolName,
		OrganizationID: organizationID,
		Since:          until.Add(-tf.Window),
		Until:          until,
		BucketSize:     tf.Bucket,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate trend buckets")
	}

	report := &TrendReport{
		ToolName:  toolName,
		Timeframe: tf.Name,
		Periods:   make([]PeriodTrend, 0, len(aggs)),
	}

	for i := range aggs {
		agg := &aggs[i]
		period := PeriodTrend{
			PeriodStart:       agg.PeriodStart,
			TotalCalls:        agg.TotalCalls,
			SuccessRate:       agg.SuccessRate(),
			AverageLatencyMs:  agg.AverageLatencyMs,
			AverageConfidence: agg.AverageConfidence,
		}
		if i > 0 {
			prev := &aggs[i-1]
			period.Deltas = &Deltas{
				CallVolume:        int64(agg.TotalCalls) - int64(prev.TotalCalls),
				SuccessRate:       agg.SuccessRate() - prev.SuccessRate(),
				AverageLatencyMs:  agg.AverageLatencyMs - prev.AverageLatencyMs,
				AverageConfidence: agg.AverageConfidence - prev.AverageConfidence,
			}
		}
		report.Periods = append(report.Periods, period)
	}
	return report, nil
}
