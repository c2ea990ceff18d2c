// Package telemetry holds the lock-free counters every pipeline component
// reports into, and the periodic reporter that drains them.
package telemetry

import "sync/atomic"

// Counters is the shared counter aggregate. It is created once by the
// process driver and passed by reference to every component that reports
// telemetry; increments are atomic so overlapping cycles never lose
// updates. Counters only ever go up; the gauges track last-seen values.
type Counters struct {
	startMs atomic.Int64

	Heartbeats      atomic.Int64
	NearMisses      atomic.Int64
	Opportunities   atomic.Int64
	IntentsEmitted  atomic.Int64
	BundlesObserved atomic.Int64
	BundlesFilled   atomic.Int64
	BundlesPartial  atomic.Int64
	BundlesUnfilled atomic.Int64

	// Gauges (last observed, not cumulative).
	MarketsLoaded     atomic.Int64
	MarketsInSnapshot atomic.Int64
}

// NewCounters creates a counter aggregate anchored at nowMs.
func NewCounters(nowMs int64) *Counters {
	c := &Counters{}
	c.startMs.Store(nowMs)
	return c
}

// StatsSnapshot is a point-in-time copy of all counters, shaped for JSON
// output (log line, JSONL file, archive object).
type StatsSnapshot struct {
	NowMs             int64 `json:"now_ms"`
	UpSec             int64 `json:"up_sec"`
	Heartbeats        int64 `json:"heartbeats"`
	MarketsLoaded     int64 `json:"markets_loaded"`
	MarketsInSnapshot int64 `json:"markets_in_snapshot"`
	NearMisses        int64 `json:"near_arb_hits"`
	Opportunities     int64 `json:"opportunities"`
	IntentsEmitted    int64 `json:"intents_emitted"`
	BundlesObserved   int64 `json:"bundles_observed"`
	BundlesFilled     int64 `json:"bundles_filled"`
	BundlesPartial    int64 `json:"bundles_partial"`
	BundlesUnfilled   int64 `json:"bundles_unfilled"`
}

// Snapshot copies the current counter values. The copy is not atomic across
// fields; individual counters are read atomically and monotonicity per
// counter is all the reporter needs.
func (c *Counters) Snapshot(nowMs int64) StatsSnapshot {
	upSec := (nowMs - c.startMs.Load()) / 1000
	if upSec < 0 {
		upSec = 0
	}
	return StatsSnapshot{
		NowMs:             nowMs,
		UpSec:             upSec,
		Heartbeats:        c.Heartbeats.Load(),
		MarketsLoaded:     c.MarketsLoaded.Load(),
		MarketsInSnapshot: c.MarketsInSnapshot.Load(),
		NearMisses:        c.NearMisses.Load(),
		Opportunities:     c.Opportunities.Load(),
		IntentsEmitted:    c.IntentsEmitted.Load(),
		BundlesObserved:   c.BundlesObserved.Load(),
		BundlesFilled:     c.BundlesFilled.Load(),
		BundlesPartial:    c.BundlesPartial.Load(),
		BundlesUnfilled:   c.BundlesUnfilled.Load(),
	}
}
