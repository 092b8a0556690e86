package device

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
)

type fakeDriver struct {
	name string
	gpu  driver.GPU
	open int
}

func (d *fakeDriver) Open() (driver.GPU, error) { d.open++; return d.gpu, nil }
func (d *fakeDriver) Name() string              { return d.name }
func (d *fakeDriver) Close()                    {}

func TestOpenMatchesByName(t *testing.T) {
	want := &fakeDriver{name: "fake-test-driver", gpu: faketest.NewGPU()}
	other := &fakeDriver{name: "unrelated", gpu: faketest.NewGPU()}
	driver.Register(want)
	driver.Register(other)

	d, err := Open(&Config{DriverName: "fake-test"})
	if err != nil {
		t.Fatalf("Open:\nhave %v\nwant nil", err)
	}
	if d.GPU() != want.gpu {
		t.Fatalf("Open: GPU:\nhave %v\nwant %v", d.GPU(), want.gpu)
	}
	if d.Driver() != want {
		t.Fatalf("Open: Driver:\nhave %v\nwant %v", d.Driver(), want)
	}
}

func TestOpenNoMatch(t *testing.T) {
	driver.Register(&fakeDriver{name: "irrelevant-for-this-test", gpu: faketest.NewGPU()})
	_, err := Open(&Config{DriverName: "does-not-exist-xyz"})
	if err == nil {
		t.Fatal("Open: unmatched DriverName:\nhave nil error\nwant non-nil")
	}
}

func TestWaitIdle(t *testing.T) {
	gpu := faketest.NewGPU()
	d := &Device{drv: &fakeDriver{name: "w"}, gpu: gpu}
	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle:\nhave %v\nwant nil", err)
	}
	if n := gpu.Commits(); n != 1 {
		t.Fatalf("WaitIdle: Commits:\nhave %d\nwant 1", n)
	}
}

func TestConfigureChangesDefault(t *testing.T) {
	orig := cfg
	defer Configure(&orig)

	c := DefaultConfig()
	c.DriverName = "configure-test"
	c.MaxFramesInFlight = 7
	Configure(&c)

	gpu := faketest.NewGPU()
	drv := &fakeDriver{name: "configure-test", gpu: gpu}
	driver.Register(drv)
	d, err := Open(nil)
	if err != nil {
		t.Fatalf("Open:\nhave %v\nwant nil", err)
	}
	if n := d.Config().MaxFramesInFlight; n != 7 {
		t.Fatalf("Config.MaxFramesInFlight:\nhave %d\nwant 7", n)
	}
}
