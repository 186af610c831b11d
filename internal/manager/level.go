package manager

import (
	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/parkerrors"
	"github.com/parkctl/parkctl/internal/platereg"
	"github.com/parkctl/parkctl/internal/shm"
)

// LevelController classifies each plate event at one level's LPR and
// updates PlateRegistry/LevelOccupancy accordingly (spec.md §4.6).
type LevelController struct {
	ctx   *Context
	index int
	level *shm.Level
}

// NewLevelController builds a controller for level index i.
func NewLevelController(ctx *Context, i int) *LevelController {
	return &LevelController{ctx: ctx, index: i, level: ctx.Region.Level(i)}
}

// Run loops until Running drops to false.
func (c *LevelController) Run() {
	for c.ctx.Running.Load() {
		c.iteration()
	}
}

func (c *LevelController) iteration() {
	plateBytes, ok := c.level.LPR.Consume(c.ctx.Running)
	if !ok {
		return
	}
	plate := shm.PlateString(plateBytes)

	assigned, current, known := c.ctx.Registry.Levels(plate)
	if !known {
		c.logViolation(plate, "unknown plate at level LPR")
		c.level.LPR.Clear()
		return
	}

	switch {
	case current == c.index:
		// Departure.
		c.ctx.Registry.SetCurrent(plate, platereg.None)
		c.ctx.Occupancy.Level(c.index).Release()

	case current != platereg.None:
		// Protocol violation: the car is marked present on a different
		// level already — it "teleported".
		c.logViolation(plate, "plate already current on another level")

	case assigned == c.index:
		// Arrival.
		c.ctx.Registry.SetCurrent(plate, c.index)
		c.ctx.Occupancy.Level(c.index).Admit()

	default:
		// Re-assignment: the car disregarded its assigned level.
		if c.ctx.Occupancy.Level(c.index).Admit() {
			c.ctx.Occupancy.Level(assigned).Release()
			c.ctx.Registry.Reassign(plate, c.index)
		}
		// else: this level is full, ignore the re-assignment attempt —
		// the car remains (incorrectly) without a recorded current level
		// until it eventually departs through whatever level its
		// assigned_level points to.
	}

	c.updateOccupancyMetric()
	c.level.LPR.Clear()
}

func (c *LevelController) updateOccupancyMetric() {
	if c.ctx.Metrics == nil {
		return
	}
	c.ctx.Metrics.LevelOccupancy.WithLabelValues(levelLabel(c.index)).Set(
		float64(c.ctx.Occupancy.Level(c.index).Count()))
}

func (c *LevelController) logViolation(plate, reason string) {
	if c.ctx.Log != nil {
		c.ctx.Log.Warn("level controller protocol violation",
			zap.Error(parkerrors.ErrProtocolViolation),
			zap.Int("level", c.index),
			zap.String("plate", plate),
			zap.String("reason", reason),
		)
	}
}
