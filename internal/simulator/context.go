package simulator

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

// Context bundles every dependency a car worker, gate worker or
// temperature tick needs, so none of them have to reach for package
// globals.
type Context struct {
	Region      *shm.Region
	EntryQueues []*EntryQueue
	PlateBag    *PlateBag
	RNG         *RNG
	Running     *atomic.Bool
	TimeFactor  int
	MinDwellMS  int
	MaxDwellMS  int
	Metrics     *observability.Metrics
	Log         *zap.Logger
}
