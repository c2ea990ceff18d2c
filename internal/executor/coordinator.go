package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

// Coordinator receives the order intents produced by a strategy pass and
// carries each bundle through to a terminal outcome. Implementations must
// treat the legs of one bundle as a unit: either report on all of them or
// fail the whole bundle.
type Coordinator interface {
	Execute(ctx context.Context, intents []domain.OrderIntent) error
}

// bundle is one group of intents sharing a BundleID.
type bundle struct {
	ID   uuid.UUID
	Legs []domain.OrderIntent
}

// groupByBundle splits intents into per-bundle groups, preserving the order
// in which each bundle first appears and the order of legs within it.
func groupByBundle(intents []domain.OrderIntent) []bundle {
	index := make(map[uuid.UUID]int, len(intents))
	var out []bundle
	for _, it := range intents {
		i, ok := index[it.BundleID]
		if !ok {
			i = len(out)
			index[it.BundleID] = i
			out = append(out, bundle{ID: it.BundleID})
		}
		out[i].Legs = append(out[i].Legs, it)
	}
	return out
}
