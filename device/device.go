// Package device implements the root object of a rendering session:
// GPU selection, process-wide configuration, and the subsystems every
// other package is handed a reference to (descriptor pool, resource
// cache, query pool, render thread).
package device

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rtcore/rtcore/desc"
	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/query"
	"github.com/rtcore/rtcore/rescache"
	"github.com/rtcore/rtcore/rthread"
)

const prefix = "device: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrNoDevice is returned by Open when no registered driver produces a
// usable GPU.
var ErrNoDevice = errors.New(prefix + "no usable GPU")

// Config configures the Device created by Open.
// Its shape follows the engine-wide Config/DefaultConfig/Configure
// convention used throughout rtcore: a value type, a package default,
// and a setter called once before first use.
type Config struct {
	// DriverName restricts Open to drivers whose name contains this
	// substring. The empty string considers every registered driver.
	DriverName string

	// Debug enables validation and diagnostic logging in backends
	// that support it. It has no effect on backends that don't.
	Debug bool

	// MaxFramesInFlight is recorded in the Config a Device reports
	// through Config. Open passes it to no subsystem; the render
	// thread's backlog is not bounded by it.
	//
	// Default is 3.
	MaxFramesInFlight int
}

// DefaultConfig returns the configuration Open uses if Configure was
// never called.
func DefaultConfig() Config {
	return Config{
		MaxFramesInFlight: 3,
	}
}

var (
	cfgMu sync.Mutex
	cfg   Config
)

// Configure replaces the package-wide configuration used by Open.
// It must be called before Open, if at all; changing it afterwards
// has no effect on an already-open Device.
func Configure(c *Config) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	cfg = *c
}

// Device is the root object of a rendering session: it owns the
// selected driver.GPU and the configuration Open was called with.
// There is ordinarily one Device per process; nothing in this package
// enforces that, but callers should treat a second Open as a distinct,
// independent session against (possibly) the same physical GPU.
type Device struct {
	drv driver.Driver
	gpu driver.GPU
	cfg Config

	descPool *desc.Pool
	cache    *rescache.Cache
	queries  *query.Pool
	thread   *rthread.Thread

	mu     sync.Mutex
	closed bool
}

// Open selects and opens the first registered driver whose name
// contains config.DriverName (the empty string matches any driver),
// in registration order, and returns a Device wrapping it.
// If config is nil, the package-wide Configure default is used.
func Open(config *Config) (*Device, error) {
	c := cfg
	if config != nil {
		c = *config
	}
	drivers := driver.Drivers()
	var lastErr error = ErrNoDevice
	for _, d := range drivers {
		if !strings.Contains(d.Name(), c.DriverName) {
			continue
		}
		gpu, err := d.Open()
		if err != nil {
			lastErr = err
			continue
		}
		return &Device{
			drv:      d,
			gpu:      gpu,
			cfg:      c,
			descPool: desc.NewPool(gpu, desc.Budget{}),
			cache:    rescache.New(gpu),
			queries:  query.NewPool(gpu),
			thread:   rthread.New(),
		}, nil
	}
	return nil, lastErr
}

// GPU returns the driver.GPU opened by this Device.
func (d *Device) GPU() driver.GPU { return d.gpu }

// Driver returns the driver.Driver that produced this Device's GPU.
func (d *Device) Driver() driver.Driver { return d.drv }

// Config returns the configuration this Device was opened with.
func (d *Device) Config() Config { return d.cfg }

// Limits returns the GPU's implementation limits.
func (d *Device) Limits() driver.Limits { return d.gpu.Limits() }

// Features returns the GPU's optional feature set.
func (d *Device) Features() driver.Features { return d.gpu.Features() }

// DescPool returns the descriptor-set pool shared by every
// render.Context created against this Device.
func (d *Device) DescPool() *desc.Pool { return d.descPool }

// Cache returns the render-pass/framebuffer/pipeline/descriptor-table
// cache shared by every render.Context created against this Device.
func (d *Device) Cache() *rescache.Cache { return d.cache }

// Queries returns the Device's query-slot allocator.
func (d *Device) Queries() *query.Pool { return d.queries }

// Thread returns the render thread that serializes every GPU-driver
// call made through this Device.
func (d *Device) Thread() *rthread.Thread { return d.thread }

// WaitIdle blocks until every command batch submitted through this
// Device's GPU has completed execution.
//
// It submits an empty batch and waits on its completion; drivers whose
// Commit already serializes on an empty batch make this a cheap no-op
// round-trip, so callers may use it freely as a session-teardown
// barrier.
func (d *Device) WaitIdle() error {
	ch := make(chan *driver.WorkItem, 1)
	wk := &driver.WorkItem{}
	if err := d.gpu.Commit(wk, ch); err != nil {
		return fmt.Errorf(prefix+"waitIdle: %w", err)
	}
	wk = <-ch
	return wk.Err
}

// Close shuts down the Device's render thread, then releases the
// underlying driver.
// It does not release resources created through the Device's GPU;
// callers must destroy those first and call WaitIdle, or risk the
// driver logging (and ignoring) a resource leak on Close.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.thread != nil {
		d.thread.Shutdown()
	}
	d.drv.Close()
}

func init() {
	c := DefaultConfig()
	Configure(&c)
}
