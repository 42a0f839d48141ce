package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-integrity-api/internal/dto"
)

// ReportCache keeps analysis reports in Redis under a per-assignment
// generation. Invalidate bumps the generation, so a report assembled from
// rows read before the bump lands under a key that is never looked up again.
// A nil *ReportCache, or one without a client, caches nothing.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewReportCache builds a report cache on client.
func NewReportCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "report_cache").Logger(),
	}
}

func reportGenerationKey(assignmentID string) string {
	return fmt.Sprintf("integrity:report:%s:generation", assignmentID)
}

func reportCacheKey(assignmentID string, generation int64) string {
	return fmt.Sprintf("integrity:report:%s:%d", assignmentID, generation)
}

func (c *ReportCache) enabled() bool {
	return c != nil && c.client != nil
}

// Lookup returns the cached report when present. The returned key is where a
// freshly built report belongs; it is empty when nothing should be stored.
func (c *ReportCache) Lookup(ctx context.Context, assignmentID string) (dto.AnalysisReport, string, bool) {
	if !c.enabled() {
		return dto.AnalysisReport{}, "", false
	}

	generation, err := c.client.Get(ctx, reportGenerationKey(assignmentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to read report generation")
		return dto.AnalysisReport{}, "", false
	}

	key := reportCacheKey(assignmentID, generation)
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to read analysis report cache")
		}
		return dto.AnalysisReport{}, key, false
	}

	var report dto.AnalysisReport
	if err := json.Unmarshal(cached, &report); err != nil {
		c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("discarding unreadable cached report")
		return dto.AnalysisReport{}, key, false
	}
	return report, key, true
}

// Store saves report under a key obtained from Lookup.
func (c *ReportCache) Store(ctx context.Context, key string, report dto.AnalysisReport) {
	if !c.enabled() || key == "" {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode analysis report")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store analysis report cache")
	}
}

// Invalidate retires every report cached for the assignment so far.
func (c *ReportCache) Invalidate(ctx context.Context, assignmentID string) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, reportGenerationKey(assignmentID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to invalidate analysis report cache")
	}
}
