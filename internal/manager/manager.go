// Package manager implements the Manager process's components: the
// entry, level and exit controllers, the plate registry, occupancy
// accounting and billing ledger (spec.md §4.5, §4.6, §4.7).
package manager

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/adminsock"
	"github.com/parkctl/parkctl/internal/billing"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/occupancy"
	"github.com/parkctl/parkctl/internal/platereg"
	"github.com/parkctl/parkctl/internal/shm"
)

// Manager owns every Manager-process controller and coordinates their
// startup and shutdown.
type Manager struct {
	region  *shm.Region
	ctx     *Context
	running *atomic.Bool

	entries []*EntryController
	levels  []*LevelController
	exits   []*ExitController

	wg  sync.WaitGroup
	log *zap.Logger
}

// Params configures a new Manager.
type Params struct {
	Region        *shm.Region
	AllowList     []string
	TimeFactor    int
	CostPerMS     float64
	LevelCapacity int
	BillingPath   string
	Metrics       *observability.Metrics
	Log           *zap.Logger
}

// New wires up a Manager from its dependencies. The returned Manager is
// not yet running — call Start. It owns the billing ledger's file
// handle; callers must call Shutdown to release it.
func New(p Params) (*Manager, error) {
	running := &atomic.Bool{}
	running.Store(true)

	ledger, err := billing.NewWriter(p.BillingPath, p.Metrics)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Region:     p.Region,
		Registry:   platereg.New(p.AllowList),
		Occupancy:  occupancy.NewTable(p.Region.NumLevels(), p.LevelCapacity),
		Billing:    billing.NewTable(),
		Ledger:     ledger,
		Running:    running,
		TimeFactor: p.TimeFactor,
		CostPerMS:  p.CostPerMS,
		Metrics:    p.Metrics,
		Log:        p.Log,
	}

	m := &Manager{
		region:  p.Region,
		ctx:     ctx,
		running: running,
		log:     p.Log,
	}

	for i := 0; i < p.Region.NumEntrances(); i++ {
		m.entries = append(m.entries, NewEntryController(ctx, i))
	}
	for i := 0; i < p.Region.NumLevels(); i++ {
		m.levels = append(m.levels, NewLevelController(ctx, i))
	}
	for i := 0; i < p.Region.NumExits(); i++ {
		m.exits = append(m.exits, NewExitController(ctx, i))
	}

	return m, nil
}

// Start launches one goroutine per entrance, level and exit controller.
func (m *Manager) Start() {
	for _, c := range m.entries {
		m.wg.Add(1)
		go func(c *EntryController) { defer m.wg.Done(); c.Run() }(c)
	}
	for _, c := range m.levels {
		m.wg.Add(1)
		go func(c *LevelController) { defer m.wg.Done(); c.Run() }(c)
	}
	for _, c := range m.exits {
		m.wg.Add(1)
		go func(c *ExitController) { defer m.wg.Done(); c.Run() }(c)
	}
}

// Status implements adminsock.StatusProvider: a read-only snapshot of
// every level's occupancy, capacity and alarm flag, plus the running
// billing total.
func (m *Manager) Status() adminsock.Status {
	levels := make([]adminsock.LevelStatus, m.ctx.Occupancy.Len())
	for i := range levels {
		counter := m.ctx.Occupancy.Level(i)
		levels[i] = adminsock.LevelStatus{
			Level:       i,
			Occupied:    counter.Count(),
			Capacity:    counter.Capacity(),
			AlarmActive: m.ctx.Region.Level(i).Alarm(),
		}
	}
	return adminsock.Status{
		Levels:              levels,
		BillingTotalDollars: m.ctx.Ledger.Total(),
	}
}

// Shutdown implements the Manager's half of spec.md §4.11: flip the
// running flag, broadcast on every shared-memory wait-variable so no
// controller goroutine is left blocked in Consume, join them all, then
// close the billing ledger.
func (m *Manager) Shutdown() error {
	m.running.Store(false)

	m.region.WakeAllLPRs()
	m.region.WakeAllGates()
	m.region.WakeAllSigns()

	m.wg.Wait()

	if m.log != nil {
		m.log.Info("billing total", zap.Float64("total", m.ctx.Ledger.Total()))
	}
	return m.ctx.Ledger.Close()
}
