// Package strategy turns global snapshots into order intents.
package strategy

import "github.com/alanyoungcy/bundlebot/internal/domain"

// Strategy is the uniform contract every trading strategy implements:
// snapshot in, intents out. OnSnapshot must be pure computation — no I/O,
// no suspension — so nothing sits between the latest snapshot and the
// emitted intents.
type Strategy interface {
	Name() string
	OnSnapshot(snap *domain.GlobalSnapshot) []domain.OrderIntent
}
