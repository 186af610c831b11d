package manager

import (
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/shm"
)

// EntryController runs the Idle -> Received -> Decided -> Gated ->
// Cleared state machine for one entrance (spec.md §4.5).
type EntryController struct {
	ctx      *Context
	index    int
	entrance *shm.Entrance
}

// NewEntryController builds a controller for entrance index i.
func NewEntryController(ctx *Context, i int) *EntryController {
	return &EntryController{ctx: ctx, index: i, entrance: ctx.Region.Entrance(i)}
}

// Run loops the state machine until Running drops to false.
func (c *EntryController) Run() {
	for c.ctx.Running.Load() {
		c.iteration()
	}
}

func (c *EntryController) iteration() {
	// Idle: block until a plate arrives.
	plateBytes, ok := c.entrance.LPR.Consume(c.ctx.Running)
	if !ok {
		return
	}
	plate := shm.PlateString(plateBytes)

	// Received: refuse admission decisions during evacuation.
	if c.ctx.AnyAlarmActive() {
		c.entrance.LPR.Clear()
		c.logOutcome(plate, "rejected_alarm", -1)
		return
	}

	// Decided.
	display, outcome, level := c.decide(plate)
	c.entrance.Sign.Set(display)

	if outcome == "admitted" {
		// Gated.
		c.entrance.Gate.Set('R')
		c.ctx.Billing.RecordEntry(plate, nowMS())
		c.sleep(20)
		c.entrance.Gate.Set('L')
	}
	c.logOutcome(plate, outcome, level)

	// Cleared.
	c.sleep(20)
	c.entrance.Sign.Clear()
	c.entrance.LPR.Clear()
}

// decide implements spec.md §4.5's Decided state.
func (c *EntryController) decide(plate string) (display byte, outcome string, level int) {
	if !c.ctx.Registry.Known(plate) {
		return 'X', "rejected_unknown", -1
	}
	if c.ctx.Registry.Inside(plate) {
		return 'X', "rejected_reentry", -1
	}

	available := c.ctx.Occupancy.AvailableLevels()
	if len(available) == 0 {
		return 'F', "rejected_full", -1
	}

	level = available[pickIndex(len(available))]
	c.ctx.Registry.Assign(plate, level)
	return byte('1' + level), "admitted", level
}

// pickIndex chooses a uniformly random index in [0, n). Kept as a
// package variable (rather than a direct math/rand call) so tests can
// substitute a deterministic picker.
var pickIndex = defaultPickIndex

func (c *EntryController) sleep(baseMS int) {
	time.Sleep(time.Duration(c.ctx.scaledSleepMS(baseMS)) * time.Millisecond)
}

func (c *EntryController) logOutcome(plate, outcome string, level int) {
	if c.ctx.Metrics != nil {
		c.ctx.Metrics.AdmissionsTotal.WithLabelValues(outcome).Inc()
	}
	if c.ctx.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("entrance", c.index),
		zap.String("plate", plate),
		zap.String("outcome", outcome),
	}
	if level >= 0 {
		fields = append(fields, zap.Int("level", level))
	}
	c.ctx.Log.Debug("entry decision", fields...)
}
