package simulator

import (
	"sync/atomic"
	"testing"

	"github.com/parkctl/parkctl/internal/shm"
	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func newTempSim(numLevels int) (*TemperatureSimulator, []*shm.Level) {
	region := shmtest.New(1, 1, numLevels)
	running := &atomic.Bool{}
	running.Store(true)
	levels := make([]*shm.Level, numLevels)
	for i := range levels {
		levels[i] = region.Level(i)
	}
	ts := NewTemperatureSimulator(levels, NewRNG(7), running, 1, nil)
	return ts, levels
}

func TestTemperatureSimulatorOffStaysInNominalRange(t *testing.T) {
	ts, levels := newTempSim(1)
	for i := 0; i < 50; i++ {
		ts.step(0, levels[0])
		v := levels[0].Temp()
		if v < 25 || v > 32 {
			t.Fatalf("expected OFF-mode temperature in [25,32], got %d", v)
		}
	}
}

func TestTemperatureSimulatorFixedModeRange(t *testing.T) {
	ts, levels := newTempSim(1)
	ts.SetMode(0, FireModeFixed)
	for i := 0; i < 50; i++ {
		ts.step(0, levels[0])
		v := levels[0].Temp()
		if v < 60 || v > 67 {
			t.Fatalf("expected FIXED-mode temperature in [60,67], got %d", v)
		}
	}
}

func TestTemperatureSimulatorRORJumpsThenDrifts(t *testing.T) {
	ts, levels := newTempSim(1)
	levels[0].SetTemp(25)
	ts.SetMode(0, FireModeROR)

	ts.step(0, levels[0])
	first := levels[0].Temp()
	if first != 45 {
		t.Fatalf("expected the first ROR tick to jump by +20C (25->45), got %d", first)
	}

	for i := 0; i < 20; i++ {
		prev := levels[0].Temp()
		ts.step(0, levels[0])
		v := levels[0].Temp()
		if v > maxTemperatureCelsius {
			t.Fatalf("temperature must be capped at %d, got %d", maxTemperatureCelsius, v)
		}
		if v < prev-1 || v > prev+2 {
			t.Fatalf("expected each ROR drift tick to move by -1..+2C, went from %d to %d", prev, v)
		}
	}
}

func TestTemperatureSimulatorCapsAtMax(t *testing.T) {
	ts, levels := newTempSim(1)
	levels[0].SetTemp(maxTemperatureCelsius)
	ts.SetMode(0, FireModeFixed)
	for i := 0; i < 30; i++ {
		ts.step(0, levels[0])
		if levels[0].Temp() > maxTemperatureCelsius {
			t.Fatalf("temperature exceeded cap: %d", levels[0].Temp())
		}
	}
}
