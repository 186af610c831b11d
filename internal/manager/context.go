// Package manager implements the Manager process's per-entrance, per-
// level and per-exit controllers (spec.md §4.5, §4.6, §4.7), wired
// together with the shared PlateRegistry, LevelOccupancy and
// BillingTable.
package manager

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/billing"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/occupancy"
	"github.com/parkctl/parkctl/internal/platereg"
	"github.com/parkctl/parkctl/internal/shm"
)

// Context bundles every dependency the entry/level/exit controllers
// need.
type Context struct {
	Region     *shm.Region
	Registry   *platereg.Registry
	Occupancy  *occupancy.Table
	Billing    *billing.Table
	Ledger     *billing.Writer
	Running    *atomic.Bool
	TimeFactor int
	CostPerMS  float64
	Metrics    *observability.Metrics
	Log        *zap.Logger
}

func (c *Context) scaledSleepMS(baseMS int) int {
	return baseMS * c.TimeFactor
}

// AnyAlarmActive reports whether any level currently has its alarm flag
// set — checked by the entry controller's Received state (spec.md §4.5:
// "refuse to make admission decisions during evacuation").
func (c *Context) AnyAlarmActive() bool {
	for i := 0; i < c.Region.NumLevels(); i++ {
		if c.Region.Level(i).Alarm() {
			return true
		}
	}
	return false
}
