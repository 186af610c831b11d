package manager

import (
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/parkerrors"
	"github.com/parkctl/parkctl/internal/shm"
)

// ExitController awaits a plate at one exit's LPR, bills the car and
// releases its gate (spec.md §4.7).
type ExitController struct {
	ctx   *Context
	index int
	exit  *shm.Exit
}

// NewExitController builds a controller for exit index i.
func NewExitController(ctx *Context, i int) *ExitController {
	return &ExitController{ctx: ctx, index: i, exit: ctx.Region.Exit(i)}
}

// Run loops until Running drops to false.
func (c *ExitController) Run() {
	for c.ctx.Running.Load() {
		c.iteration()
	}
}

func (c *ExitController) iteration() {
	plateBytes, ok := c.exit.LPR.Consume(c.ctx.Running)
	if !ok {
		return
	}
	plate := shm.PlateString(plateBytes)

	c.exit.Gate.Set('R')

	amount := c.bill(plate)

	c.ctx.Registry.Release(plate)

	if !c.ctx.AnyAlarmActive() {
		c.sleep(20)
		c.exit.Gate.Set('L')
	}
	// During an active alarm the gate is already held open by the Fire
	// Alarm arbiter's evacuation takeover — leaving it as-is here avoids
	// racing the arbiter's direct writes (spec.md §4.10).

	c.exit.LPR.Clear()

	if c.ctx.Log != nil {
		c.ctx.Log.Debug("car exited",
			zap.Int("exit", c.index),
			zap.String("plate", plate),
			zap.Float64("amount", amount),
		)
	}
}

func (c *ExitController) bill(plate string) float64 {
	entryMS, ok := c.ctx.Billing.TakeEntry(plate)
	if !ok {
		c.ctx.Ledger.RecordMissing()
		if c.ctx.Log != nil {
			c.ctx.Log.Warn("missing billing entry for exiting plate",
				zap.Error(parkerrors.ErrMissingBillingEntry),
				zap.String("plate", plate))
		}
		return 0
	}

	elapsedMS := nowMS() - entryMS
	amount := (float64(elapsedMS) / float64(c.ctx.TimeFactor)) * c.ctx.CostPerMS
	if err := c.ctx.Ledger.Append(plate, amount); err != nil && c.ctx.Log != nil {
		c.ctx.Log.Error("billing log append failed", zap.Error(err), zap.String("plate", plate))
	}
	return amount
}

func (c *ExitController) sleep(baseMS int) {
	time.Sleep(time.Duration(c.ctx.scaledSleepMS(baseMS)) * time.Millisecond)
}
