package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

// streamMaxLen is the approximate maximum stream length, enforced via
// XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// reportEntry is the JSON shape of one stream record.
type reportEntry struct {
	BundleID    string `json:"bundle_id"`
	MarketID    string `json:"market_id"`
	Outcome     string `json:"outcome"`
	LegsTotal   int    `json:"legs_total"`
	LegsFilled  int    `json:"legs_filled"`
	NeedsUnwind bool   `json:"needs_unwind"`
	SubmittedMs int64  `json:"submitted_ms"`
	CompletedMs int64  `json:"completed_ms"`
}

// ReportStream implements domain.ReportPublisher by appending bundle
// reports to a Redis stream, where dashboards and unwind tooling read them.
type ReportStream struct {
	rdb    *redis.Client
	stream string
}

// NewReportStream creates a ReportStream writing to the named stream.
func NewReportStream(c *Client, stream string) *ReportStream {
	return &ReportStream{rdb: c.Underlying(), stream: stream}
}

// PublishReport appends one report as a JSON payload via XADD.
func (rs *ReportStream) PublishReport(ctx context.Context, report domain.BundleReport) error {
	entry := reportEntry{
		BundleID:    report.BundleID.String(),
		MarketID:    report.MarketID,
		Outcome:     string(report.Outcome),
		LegsTotal:   len(report.Legs),
		LegsFilled:  report.FilledLegs(),
		NeedsUnwind: report.NeedsUnwind,
		SubmittedMs: report.SubmittedAt.UnixMilli(),
		CompletedMs: report.CompletedAt.UnixMilli(),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: rs.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := rs.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", rs.stream, err)
	}
	return nil
}
