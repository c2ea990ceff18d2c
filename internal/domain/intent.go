package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderIntent is one leg of a candidate trade. All legs of one arbitrage
// opportunity share a BundleID; the ID is freshly generated per opportunity
// per cycle and never reused.
type OrderIntent struct {
	MarketID string
	TokenID  string
	Side     OrderSide
	Price    decimal.Decimal // limit price, the leg's best ask
	Size     decimal.Decimal // bundle size, identical across legs
	Reason   string
	BundleID uuid.UUID
}

// FillStatus is the per-leg result of a fill-or-kill submission.
type FillStatus string

const (
	FillStatusFilled   FillStatus = "filled"
	FillStatusRejected FillStatus = "rejected"
	FillStatusTimedOut FillStatus = "timed_out"
)

// FillOutcome is the venue's answer for one submitted leg. It exists only
// for the duration of one reconciliation pass; nothing durable stores it.
type FillOutcome struct {
	TokenID     string
	OrderID     string
	Status      FillStatus
	FilledPrice decimal.Decimal
	FilledSize  decimal.Decimal
	Message     string
}

// BundleOutcome classifies the terminal state of one submitted bundle.
type BundleOutcome string

const (
	BundleAllFilled     BundleOutcome = "all_filled"
	BundlePartialFilled BundleOutcome = "partial_filled"
	BundleNoneFilled    BundleOutcome = "none_filled"
)

// BundleReport is the reconciliation record for one bundle. NeedsUnwind is
// set on partial fills: the filled legs are directional exposure that the
// strategy exists to avoid, and must be surfaced, never swallowed.
type BundleReport struct {
	BundleID    uuid.UUID
	MarketID    string
	Outcome     BundleOutcome
	Legs        []FillOutcome
	NeedsUnwind bool
	SubmittedAt time.Time
	CompletedAt time.Time
}

// FilledLegs returns how many legs in the report filled.
func (r BundleReport) FilledLegs() int {
	n := 0
	for _, l := range r.Legs {
		if l.Status == FillStatusFilled {
			n++
		}
	}
	return n
}
