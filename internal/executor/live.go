package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// Alerter delivers high-priority operator alerts. Implemented by the notify
// package; a nil Alerter disables alerting but never reconciliation.
type Alerter interface {
	NotifyAll(ctx context.Context, title, message string) error
}

// Live is the trading coordinator. It submits every leg of a bundle
// concurrently as fill-or-kill orders, waits for all legs to reach a
// terminal state within the leg timeout, and reconciles the results into a
// BundleReport. A bundle is never retried: partial fills are surfaced as
// unwind work, not re-entered.
type Live struct {
	submitter  domain.OrderSubmitter
	publisher  domain.ReportPublisher // optional
	alerter    Alerter                // optional
	counters   *telemetry.Counters
	legTimeout time.Duration
	logger     *slog.Logger
}

// NewLive creates a live Coordinator. legTimeout bounds the wait for any
// single leg submission; zero or negative falls back to 10s.
func NewLive(
	submitter domain.OrderSubmitter,
	publisher domain.ReportPublisher,
	alerter Alerter,
	legTimeout time.Duration,
	counters *telemetry.Counters,
	logger *slog.Logger,
) *Live {
	if legTimeout <= 0 {
		legTimeout = 10 * time.Second
	}
	return &Live{
		submitter:  submitter,
		publisher:  publisher,
		alerter:    alerter,
		counters:   counters,
		legTimeout: legTimeout,
		logger:     logger.With(slog.String("component", "live_executor")),
	}
}

// Execute runs every bundle in intents to a terminal state. Bundles are
// executed sequentially; the legs within a bundle run concurrently. The
// returned error aggregates per-bundle publish failures only, since the
// bundles themselves always terminate in a report.
func (l *Live) Execute(ctx context.Context, intents []domain.OrderIntent) error {
	var errs []error
	for _, b := range groupByBundle(intents) {
		report := l.executeBundle(ctx, b)
		l.reconcile(ctx, report)
		if l.publisher != nil {
			if err := l.publisher.PublishReport(ctx, report); err != nil {
				l.logger.Warn("report publish failed",
					slog.String("bundle_id", report.BundleID.String()),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("publish bundle %s: %w", report.BundleID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// executeBundle submits all legs at once and collects one FillOutcome per
// leg. Submission errors and timeouts become rejected/timed_out outcomes so
// the report always covers every leg.
func (l *Live) executeBundle(ctx context.Context, b bundle) domain.BundleReport {
	report := domain.BundleReport{
		BundleID:    b.ID,
		MarketID:    b.Legs[0].MarketID,
		Legs:        make([]domain.FillOutcome, len(b.Legs)),
		SubmittedAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	for i, leg := range b.Legs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Legs[i] = l.submitLeg(ctx, leg)
		}()
	}
	wg.Wait()

	report.CompletedAt = time.Now().UTC()
	report.Outcome = classify(report.Legs)
	report.NeedsUnwind = report.Outcome == domain.BundlePartialFilled
	return report
}

func (l *Live) submitLeg(ctx context.Context, leg domain.OrderIntent) domain.FillOutcome {
	legCtx, cancel := context.WithTimeout(ctx, l.legTimeout)
	defer cancel()

	out, err := l.submitter.SubmitFOK(legCtx, leg)
	if err != nil {
		status := domain.FillStatusRejected
		if errors.Is(err, context.DeadlineExceeded) {
			status = domain.FillStatusTimedOut
		}
		return domain.FillOutcome{
			TokenID: leg.TokenID,
			Status:  status,
			Message: err.Error(),
		}
	}
	if out.TokenID == "" {
		out.TokenID = leg.TokenID
	}
	return out
}

// classify folds per-leg statuses into the bundle outcome.
func classify(legs []domain.FillOutcome) domain.BundleOutcome {
	filled := 0
	for _, leg := range legs {
		if leg.Status == domain.FillStatusFilled {
			filled++
		}
	}
	switch filled {
	case len(legs):
		return domain.BundleAllFilled
	case 0:
		return domain.BundleNoneFilled
	default:
		return domain.BundlePartialFilled
	}
}

// reconcile records the terminal outcome: counters, logs, and on partial
// fills an operator alert. Partial fills leave naked directional legs on the
// book, so they log at Error and page regardless of notification filters.
func (l *Live) reconcile(ctx context.Context, report domain.BundleReport) {
	attrs := []slog.Attr{
		slog.String("bundle_id", report.BundleID.String()),
		slog.String("market_id", report.MarketID),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("legs", len(report.Legs)),
		slog.Int("filled", report.FilledLegs()),
		slog.Int64("duration_ms", report.CompletedAt.Sub(report.SubmittedAt).Milliseconds()),
	}

	switch report.Outcome {
	case domain.BundleAllFilled:
		l.counters.BundlesFilled.Add(1)
		l.logger.LogAttrs(ctx, slog.LevelInfo, "bundle filled", attrs...)
	case domain.BundleNoneFilled:
		l.counters.BundlesUnfilled.Add(1)
		l.logger.LogAttrs(ctx, slog.LevelInfo, "bundle unfilled", attrs...)
	case domain.BundlePartialFilled:
		l.counters.BundlesPartial.Add(1)
		l.logger.LogAttrs(ctx, slog.LevelError, "PARTIAL FILL, manual unwind required", attrs...)
		for _, leg := range report.Legs {
			l.logger.LogAttrs(ctx, slog.LevelError, "  leg state",
				slog.String("bundle_id", report.BundleID.String()),
				slog.String("token_id", leg.TokenID),
				slog.String("status", string(leg.Status)),
				slog.String("filled_size", leg.FilledSize.String()),
				slog.String("message", leg.Message),
			)
		}
		if l.alerter != nil {
			title := fmt.Sprintf("Partial fill on %s", report.MarketID)
			if err := l.alerter.NotifyAll(ctx, title, partialFillBody(report)); err != nil {
				l.logger.Warn("partial fill alert failed", slog.String("error", err.Error()))
			}
		}
	}
}

// partialFillBody renders the reconciliation summary sent to operators.
func partialFillBody(report domain.BundleReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bundle %s on market %s: %d/%d legs filled.\n",
		report.BundleID, report.MarketID, report.FilledLegs(), len(report.Legs))
	for _, leg := range report.Legs {
		fmt.Fprintf(&sb, "- token %s: %s", leg.TokenID, leg.Status)
		if leg.Status == domain.FillStatusFilled {
			fmt.Fprintf(&sb, " size=%s @ %s", leg.FilledSize, leg.FilledPrice)
		} else if leg.Message != "" {
			fmt.Fprintf(&sb, " (%s)", leg.Message)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Filled legs are naked exposure; unwind manually.")
	return sb.String()
}
