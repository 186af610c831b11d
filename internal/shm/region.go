package shm

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Region is a mapped shared-memory region, carved up into Entrance, Exit
// and Level views per Layout. All three processes (Simulator, Manager,
// FireAlarm) construct a Region over the same named backing file and see
// the same bytes.
type Region struct {
	buf    []byte
	layout Layout
	name   string
	owner  bool // true for the process that created (and must destroy) it

	entrances []*Entrance
	exits     []*Exit
	levels    []*Level
}

// shmDir mirrors where glibc's shm_open places its backing files: a
// tmpfs mount at /dev/shm, keyed by name. Go has no shm_open wrapper, so
// CreateReal/OpenReal reproduce it directly with unix.Open against that
// path instead of inventing a POSIX-shm binding that doesn't exist.
const shmDir = "/dev/shm/"

func shmPath(name string) string {
	return shmDir + name
}

// CreateReal creates and maps a new named shared-memory region sized for
// layout, removing any stale region left behind by a prior run under the
// same name. The creating process owns the region and is responsible for
// calling Destroy on shutdown (spec.md §4.11).
func CreateReal(name string, layout Layout) (*Region, error) {
	path := shmPath(name)
	_ = os.Remove(path) // best-effort: ignore "not exist"

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	if err != nil {
		return nil, fmt.Errorf("create shm region %q: %w", name, err)
	}
	defer unix.Close(fd)

	size := layout.Size()
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("size shm region %q to %d bytes: %w", name, size, err)
	}

	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("mmap shm region %q: %w", name, err)
	}

	r := newRegion(buf, layout, name, true)
	r.initDefaults()
	return r, nil
}

// OpenReal maps an existing named shared-memory region created by
// another process's CreateReal call. The opening process does not own
// the region and must not call Destroy — only Close.
func OpenReal(name string, layout Layout) (*Region, error) {
	path := shmPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open shm region %q: %w", name, err)
	}
	defer unix.Close(fd)

	size := layout.Size()
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap shm region %q: %w", name, err)
	}

	return newRegion(buf, layout, name, false), nil
}

// NewFromBuffer wraps an already-allocated buffer (sized via layout.Size)
// as a Region without any mmap/shm_open involvement. internal/shm/shmtest
// uses this to exercise the exact same channel logic against a plain
// []byte for in-process tests.
func NewFromBuffer(buf []byte, layout Layout) (*Region, error) {
	if len(buf) < layout.Size() {
		return nil, fmt.Errorf("buffer too small: have %d bytes, need %d", len(buf), layout.Size())
	}
	r := newRegion(buf, layout, "", false)
	r.initDefaults()
	return r, nil
}

func newRegion(buf []byte, layout Layout, name string, owner bool) *Region {
	r := &Region{
		buf:    buf,
		layout: layout,
		name:   name,
		owner:  owner,
	}

	r.entrances = make([]*Entrance, layout.NumEntrances)
	for i := range r.entrances {
		base := layout.entranceOffset(i)
		r.entrances[i] = &Entrance{
			LPR:  newLPR(buf, base),
			Gate: newGate(buf, base+lprSize),
			Sign: newSign(buf, base+lprSize+gateSize),
		}
	}

	r.exits = make([]*Exit, layout.NumExits)
	for i := range r.exits {
		base := layout.exitOffset(i)
		r.exits[i] = &Exit{
			LPR:  newLPR(buf, base),
			Gate: newGate(buf, base+lprSize),
		}
	}

	r.levels = make([]*Level, layout.NumLevels)
	for i := range r.levels {
		r.levels[i] = newLevel(buf, layout.levelOffset(i))
	}

	return r
}

// initDefaults sets the startup state every process expects of a freshly
// created region: all gates closed, no sign lit, ambient temperature,
// no alarms (spec.md §3 initial-state invariant).
func (r *Region) initDefaults() {
	const ambientCelsius = 25
	for _, e := range r.entrances {
		e.Gate.Set('C')
	}
	for _, x := range r.exits {
		x.Gate.Set('C')
	}
	for _, lv := range r.levels {
		lv.SetTemp(ambientCelsius)
		lv.SetAlarm(false)
	}
}

// WakeAllLPRs broadcasts on every entrance, exit and level LPR without
// altering any plate, per spec.md §4.11(b).
func (r *Region) WakeAllLPRs() {
	for _, e := range r.entrances {
		e.LPR.Wake()
	}
	for _, x := range r.exits {
		x.LPR.Wake()
	}
	for _, lv := range r.levels {
		lv.LPR.Wake()
	}
}

// WakeAllGates broadcasts on every entrance and exit gate without
// altering status, per spec.md §4.11(d).
func (r *Region) WakeAllGates() {
	for _, e := range r.entrances {
		e.Gate.Wake()
	}
	for _, x := range r.exits {
		x.Gate.Wake()
	}
}

// WakeAllSigns broadcasts on every entrance sign without altering the
// display.
func (r *Region) WakeAllSigns() {
	for _, e := range r.entrances {
		e.Sign.Wake()
	}
}

// Entrance returns the i'th entrance's channel group.
func (r *Region) Entrance(i int) *Entrance { return r.entrances[i] }

// Exit returns the i'th exit's channel group.
func (r *Region) Exit(i int) *Exit { return r.exits[i] }

// Level returns the i'th level's channel group.
func (r *Region) Level(i int) *Level { return r.levels[i] }

// NumEntrances, NumExits and NumLevels report the garage shape this
// region was created for.
func (r *Region) NumEntrances() int { return r.layout.NumEntrances }
func (r *Region) NumExits() int     { return r.layout.NumExits }
func (r *Region) NumLevels() int    { return r.layout.NumLevels }

// Close unmaps the region without removing its backing file. Used by
// processes that opened (but did not create) the region.
func (r *Region) Close() error {
	if r.buf == nil {
		return nil
	}
	err := unix.Munmap(r.buf)
	r.buf = nil
	return err
}

// Destroy unmaps the region and removes its backing file. Only the
// owning process (the one that called CreateReal) should call this, at
// the end of the shutdown sequence in spec.md §4.11.
func (r *Region) Destroy() error {
	if !r.owner {
		return fmt.Errorf("shm: Destroy called on a non-owning region %q", r.name)
	}
	var errs error
	if r.buf != nil {
		errs = multierr.Append(errs, unix.Munmap(r.buf))
		r.buf = nil
	}
	if r.name != "" {
		if err := os.Remove(shmPath(r.name)); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
