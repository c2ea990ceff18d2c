package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/bundlebot/internal/domain"
	"github.com/alanyoungcy/bundlebot/internal/telemetry"
)

// fakeSubmitter returns a scripted outcome per token and records submissions.
type fakeSubmitter struct {
	mu        sync.Mutex
	outcomes  map[string]domain.FillOutcome
	errs      map[string]error
	submitted []string
	block     map[string]bool // tokens that hang until ctx expires
}

func (f *fakeSubmitter) SubmitFOK(ctx context.Context, it domain.OrderIntent) (domain.FillOutcome, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, it.TokenID)
	f.mu.Unlock()

	if f.block[it.TokenID] {
		<-ctx.Done()
		return domain.FillOutcome{}, ctx.Err()
	}
	if err := f.errs[it.TokenID]; err != nil {
		return domain.FillOutcome{}, err
	}
	if out, ok := f.outcomes[it.TokenID]; ok {
		return out, nil
	}
	return domain.FillOutcome{
		TokenID:     it.TokenID,
		OrderID:     "ord-" + it.TokenID,
		Status:      domain.FillStatusFilled,
		FilledPrice: it.Price,
		FilledSize:  it.Size,
	}, nil
}

type capturePublisher struct {
	mu      sync.Mutex
	reports []domain.BundleReport
	err     error
}

func (p *capturePublisher) PublishReport(_ context.Context, r domain.BundleReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return p.err
}

type captureAlerter struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (a *captureAlerter) NotifyAll(_ context.Context, title, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.titles = append(a.titles, title)
	a.bodies = append(a.bodies, message)
	return nil
}

func twoLegBundle() (uuid.UUID, []domain.OrderIntent) {
	id := uuid.New()
	return id, []domain.OrderIntent{
		intent("m1", "t1", id, "0.40"),
		intent("m1", "t2", id, "0.55"),
	}
}

func TestLiveAllFilled(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	pub := &capturePublisher{}
	sub := &fakeSubmitter{}
	live := NewLive(sub, pub, nil, time.Second, c, discardLogger())

	id, intents := twoLegBundle()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.BundlesFilled.Load(); got != 1 {
		t.Fatalf("expected 1 filled bundle, got %d", got)
	}
	if len(pub.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(pub.reports))
	}
	r := pub.reports[0]
	if r.BundleID != id || r.Outcome != domain.BundleAllFilled || r.NeedsUnwind {
		t.Fatalf("bad report: %+v", r)
	}
	if r.FilledLegs() != 2 {
		t.Fatalf("expected 2 filled legs, got %d", r.FilledLegs())
	}
	if !r.CompletedAt.After(r.SubmittedAt) && !r.CompletedAt.Equal(r.SubmittedAt) {
		t.Fatal("CompletedAt must not precede SubmittedAt")
	}
}

func TestLiveNoneFilled(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	sub := &fakeSubmitter{
		outcomes: map[string]domain.FillOutcome{
			"t1": {TokenID: "t1", Status: domain.FillStatusRejected, Message: "killed"},
			"t2": {TokenID: "t2", Status: domain.FillStatusRejected, Message: "killed"},
		},
	}
	pub := &capturePublisher{}
	alert := &captureAlerter{}
	live := NewLive(sub, pub, alert, time.Second, c, discardLogger())

	_, intents := twoLegBundle()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.BundlesUnfilled.Load(); got != 1 {
		t.Fatalf("expected 1 unfilled bundle, got %d", got)
	}
	if pub.reports[0].Outcome != domain.BundleNoneFilled || pub.reports[0].NeedsUnwind {
		t.Fatalf("bad report: %+v", pub.reports[0])
	}
	if len(alert.titles) != 0 {
		t.Fatal("none-filled bundles must not page operators")
	}
}

func TestLivePartialFillAlertsAndMarksUnwind(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	sub := &fakeSubmitter{
		errs: map[string]error{"t2": errors.New("insufficient liquidity")},
	}
	pub := &capturePublisher{}
	alert := &captureAlerter{}
	live := NewLive(sub, pub, alert, time.Second, c, discardLogger())

	id, intents := twoLegBundle()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.BundlesPartial.Load(); got != 1 {
		t.Fatalf("expected 1 partial bundle, got %d", got)
	}
	r := pub.reports[0]
	if r.Outcome != domain.BundlePartialFilled {
		t.Fatalf("expected partial_filled, got %s", r.Outcome)
	}
	if !r.NeedsUnwind {
		t.Fatal("partial fill must set NeedsUnwind")
	}
	if r.BundleID != id || len(r.Legs) != 2 {
		t.Fatalf("report must cover every leg: %+v", r)
	}

	var rejected *domain.FillOutcome
	for i := range r.Legs {
		if r.Legs[i].TokenID == "t2" {
			rejected = &r.Legs[i]
		}
	}
	if rejected == nil || rejected.Status != domain.FillStatusRejected {
		t.Fatalf("failed leg must be reported rejected: %+v", r.Legs)
	}
	if rejected.Message != "insufficient liquidity" {
		t.Fatalf("leg message lost: %q", rejected.Message)
	}

	if len(alert.titles) != 1 {
		t.Fatalf("partial fill must send exactly one alert, got %d", len(alert.titles))
	}
}

func TestLiveLegTimeoutBecomesTimedOut(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	sub := &fakeSubmitter{block: map[string]bool{"t2": true}}
	pub := &capturePublisher{}
	live := NewLive(sub, pub, nil, 20*time.Millisecond, c, discardLogger())

	_, intents := twoLegBundle()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := pub.reports[0]
	if r.Outcome != domain.BundlePartialFilled {
		t.Fatalf("expected partial_filled, got %s", r.Outcome)
	}
	for _, leg := range r.Legs {
		if leg.TokenID == "t2" && leg.Status != domain.FillStatusTimedOut {
			t.Fatalf("hung leg must be timed_out, got %s", leg.Status)
		}
	}
}

func TestLiveSubmitsLegsConcurrently(t *testing.T) {
	// Both legs hang until their shared deadline; serial submission would
	// take 2x the timeout, concurrent stays near 1x.
	c := telemetry.NewCounters(time.Now().UnixMilli())
	sub := &fakeSubmitter{block: map[string]bool{"t1": true, "t2": true}}
	live := NewLive(sub, nil, nil, 50*time.Millisecond, c, discardLogger())

	_, intents := twoLegBundle()
	start := time.Now()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 90*time.Millisecond {
		t.Fatalf("legs were not submitted concurrently: took %s", elapsed)
	}
	if c.BundlesUnfilled.Load() != 1 {
		t.Fatal("all-timed-out bundle counts as unfilled")
	}
}

func TestLivePublishFailureSurfacesButDoesNotStop(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	pub := &capturePublisher{err: errors.New("stream down")}
	sub := &fakeSubmitter{}
	live := NewLive(sub, pub, nil, time.Second, c, discardLogger())

	idA := uuid.New()
	idB := uuid.New()
	intents := []domain.OrderIntent{
		intent("m1", "t1", idA, "0.40"),
		intent("m2", "t2", idB, "0.55"),
	}

	err := live.Execute(context.Background(), intents)
	if err == nil {
		t.Fatal("publish failures must surface")
	}
	if c.BundlesFilled.Load() != 2 {
		t.Fatalf("both bundles must still execute, filled=%d", c.BundlesFilled.Load())
	}
	if len(pub.reports) != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", len(pub.reports))
	}
}

func TestLiveFillsOutcomeSizes(t *testing.T) {
	c := telemetry.NewCounters(time.Now().UnixMilli())
	sub := &fakeSubmitter{
		outcomes: map[string]domain.FillOutcome{
			"t1": {
				TokenID:     "t1",
				OrderID:     "ord-1",
				Status:      domain.FillStatusFilled,
				FilledPrice: decimal.RequireFromString("0.39"),
				FilledSize:  decimal.RequireFromString("10"),
			},
			"t2": {
				TokenID:     "t2",
				OrderID:     "ord-2",
				Status:      domain.FillStatusFilled,
				FilledPrice: decimal.RequireFromString("0.55"),
				FilledSize:  decimal.RequireFromString("10"),
			},
		},
	}
	pub := &capturePublisher{}
	live := NewLive(sub, pub, nil, time.Second, c, discardLogger())

	_, intents := twoLegBundle()
	if err := live.Execute(context.Background(), intents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := pub.reports[0]
	for _, leg := range r.Legs {
		if !leg.FilledSize.Equal(decimal.RequireFromString("10")) {
			t.Fatalf("fill size lost for %s: %s", leg.TokenID, leg.FilledSize)
		}
	}
}
