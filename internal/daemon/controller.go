// Package daemon wires every HAL capability, worker, and the RPC
// surface together and drives the process through its start/stop
// sequence (§4.11).
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/uccd-project/uccd/internal/authz"
	"github.com/uccd-project/uccd/internal/deviceid"
	"github.com/uccd-project/uccd/internal/ectransport"
	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/hal/cpufreq"
	"github.com/uccd-project/uccd/internal/hal/display"
	"github.com/uccd-project/uccd/internal/hal/fan"
	"github.com/uccd-project/uccd/internal/hal/fnlock"
	"github.com/uccd-project/uccd/internal/hal/gpu"
	"github.com/uccd-project/uccd/internal/hal/keyboard"
	"github.com/uccd-project/uccd/internal/hal/odm"
	"github.com/uccd-project/uccd/internal/hal/power"
	"github.com/uccd-project/uccd/internal/hal/watercooler"
	"github.com/uccd-project/uccd/internal/hal/webcam"
	"github.com/uccd-project/uccd/internal/metrics"
	"github.com/uccd-project/uccd/internal/persist"
	"github.com/uccd-project/uccd/internal/profile"
	"github.com/uccd-project/uccd/internal/rpcsvc"
	"github.com/uccd-project/uccd/internal/sysfsattr"
	"github.com/uccd-project/uccd/internal/worker"
	"github.com/uccd-project/uccd/internal/worker/accessory"
	"github.com/uccd-project/uccd/internal/worker/fanctl"
	"github.com/uccd-project/uccd/internal/worker/hwmon"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

// ECDevicePath is the embedded controller's character device, present
// on every supported model under this fixed node.
const ECDevicePath = "/dev/uccd-ec"

// UnsupportedGrace is how long an unrecognized device is given to
// finish logging and exit cleanly rather than being killed, per §4.11
// step 3.
const UnsupportedGrace = 30 * time.Second

// Controller drives the full daemon lifecycle: hardware discovery,
// worker startup, RPC registration, and the reverse teardown. It
// implements the Runnable shape gopkg.in/hlandau/service.v1 expects
// (Start/Stop), run from cmd/uccd's service.Main wiring.
type Controller struct {
	fs  afero.Fs
	log *logrus.Entry

	ec        *ectransport.Transport
	scheduler *worker.Scheduler
	store     *persist.Store
	svc       *rpcsvc.Service
	conn      *dbus.Conn
}

// New builds a Controller against the real filesystem and a fresh
// logrus entry; cmd/uccd installs the journald hook on log before
// calling Start.
func New(log *logrus.Entry) *Controller {
	return &Controller{fs: afero.NewOsFs(), log: log}
}

// Start runs the 8-step boot sequence from §4.11. A returned error
// means the process should exit non-zero; an unsupported device exits
// 0 after its grace window instead, since that is an expected
// outcome, not a failure.
func (c *Controller) Start() error {
	ec, err := ectransport.Open(ECDevicePath)
	if err != nil {
		c.log.WithError(err).Warn("EC device unavailable, exiting")
		return nil
	}
	c.ec = ec

	identity := deviceid.Probe(c.fs)
	if !identity.Supported {
		c.log.WithField("dmi", identity.DMI).Warn("unrecognized device, exiting after grace window")
		time.Sleep(UnsupportedGrace)
		return nil
	}
	cr := identity.Capability
	c.log.WithField("device", cr.ID).Info("device recognized")

	h, err := c.buildHAL(cr)
	if err != nil {
		return errors.Wrap(err, "daemon: building hardware abstraction layer")
	}

	metricsStore := metrics.New(metrics.HorizonDefaultSec, func() int64 { return time.Now().UnixMilli() })

	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "daemon: connecting to system bus")
	}
	c.conn = conn

	checker := authz.NewPolkitChecker(conn)
	gate := authz.New(checker, c.log)

	fanWorker := fanctl.New(newFanTempReader(c.ec, h.gpu), h.fan, h.watercooler, metricsStore, c.log)

	// svc is both the profile engine's Notifier and the accessory
	// worker's ConnectionNotifier, but it needs the engine to already
	// exist; proxy forwards to it once Register below fills it in.
	notifier := &svcProxy{}

	c.store = persist.New(c.fs, persist.DefaultDir, c.log)
	engine, err := profile.New(profile.HAL{
		CPU:      h.cpu,
		Charging: h.charging,
		ODM:      h.odm,
		Keyboard: h.keyboard,
		Display:  h.display,
		Webcam:   h.webcam,
		FnLock:   h.fnlock,
		Fan:      fanWorker,
	}, c.store, notifier, builtinProfiles(), builtinFanProfiles(), builtinKeyboardProfiles(), c.log)
	if err != nil {
		return errors.Wrap(err, "daemon: building profile engine")
	}

	onlinePath, ok := discoverACOnlinePath(c.fs)
	if !ok {
		return fmt.Errorf("daemon: no AC power supply found")
	}
	acReader := newACPowerReader(sysfsattr.New(c.fs, onlinePath, sysfsattr.KindBool), h.watercooler)
	powerWorker := powerstate.New(acReader, engine, c.log)

	hwmonWorker := hwmon.New(h.gpu, newCPUSampler(h.cpu, h.power), h.webcam, metricsStore, c.log)

	var accessoryWorker *accessory.Worker
	if cr.WaterCoolerSupported {
		accessoryWorker = accessory.New(ecAccessoryScanner{wc: h.watercooler}, notifier, c.log)
	}

	svcHAL := rpcsvc.HAL{
		CPU: h.cpu, Charging: h.charging, ODM: h.odm, Keyboard: h.keyboard,
		Display: h.display, Webcam: h.webcam, FnLock: h.fnlock, Fan: h.fan,
		WaterCooler: h.watercooler, GPU: h.gpu, Power: h.power,
	}
	svc := rpcsvc.NewService(conn, engine, metricsStore, svcHAL, identity, gate, powerWorker, c.log)
	svc.SetFanWorker(fanWorker)
	notifier.svc = svc
	c.svc = svc

	c.scheduler = worker.New(c.log)
	if err := c.scheduler.Spawn("hwmon", hwmonWorker, hwmon.Tick); err != nil {
		return errors.Wrap(err, "daemon: starting hardware monitor worker")
	}
	if err := c.scheduler.Spawn("powerstate", powerWorker, powerstate.Tick); err != nil {
		return errors.Wrap(err, "daemon: starting power-state worker")
	}
	if err := c.scheduler.Spawn("fanctl", fanWorker, fanctl.Tick); err != nil {
		return errors.Wrap(err, "daemon: starting fan-control worker")
	}
	if accessoryWorker != nil {
		if err := c.scheduler.Spawn("accessory", accessoryWorker, accessory.Tick); err != nil {
			return errors.Wrap(err, "daemon: starting accessory discovery worker")
		}
	}

	if err := svc.Register(); err != nil {
		return errors.Wrap(err, "daemon: registering RPC endpoint")
	}

	c.log.Info("uccd started")
	return nil
}

// Stop runs the reverse teardown from §4.11: unregister the bus name,
// cancel every worker under a shared deadline, close the EC device.
func (c *Controller) Stop() error {
	if c.svc != nil {
		c.svc.Unregister()
	}
	if c.scheduler != nil {
		c.scheduler.StopAll(10 * time.Second)
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.ec != nil {
		if err := c.ec.Close(); err != nil {
			c.log.WithError(err).Warn("failed to close EC device")
		}
	}
	c.log.Info("uccd stopped")
	return nil
}

// hal collects every constructed capability controller, nil where the
// capability record or a probe ruled it out.
type hal struct {
	cpu         *cpufreq.Controller
	charging    *charging.Controller
	odm         *odm.Controller
	keyboard    *keyboard.Controller
	display     *display.Controller
	webcam      *webcam.Controller
	fnlock      *fnlock.Controller
	fan         *fan.Controller
	watercooler *watercooler.Controller
	gpu         *gpu.Controller
	power       *power.Controller
}

// buildHAL constructs every capability controller the device's
// capability record grants, in the order §3 documents them.
func (c *Controller) buildHAL(cr deviceid.CapabilityRecord) (hal, error) {
	var h hal

	h.cpu, _ = cpufreq.New(c.fs, c.log)

	if cr.ChargingProfilesSupported {
		h.charging = charging.New(c.ec)
	}

	if len(cr.ODMModes) > 0 {
		h.odm = odm.New(c.ec, cr.ODMModes)
	}

	h.keyboard, _ = keyboard.New(c.ec)

	if backlightPath, ok := discoverBacklightPath(c.fs); ok {
		h.display, _ = display.New(c.fs, backlightPath)
	}

	h.webcam = webcam.New(c.ec)
	h.fnlock = fnlock.New(c.ec)
	h.fan = fan.New(c.ec)

	var dgpuPath, igpuPath string
	if p, ok := discoverHwmonPath(c.fs, "amdgpu", "nvidia"); ok {
		dgpuPath = p
	}
	if p, ok := discoverHwmonPath(c.fs, "i915"); ok && cr.GPUFans > 0 {
		igpuPath = p
	}
	h.gpu = gpu.New(c.fs, dgpuPath, igpuPath)

	if slots := powerSlots(cr.PowerLimitSlots); len(slots) > 0 {
		h.power, _ = power.New(c.fs, slots)
	}

	if cr.WaterCoolerSupported {
		h.watercooler = watercooler.New(c.ec, func(watercooler.EnableEvent) {})
	}

	return h, nil
}

func powerSlots(slots []deviceid.PowerLimitSlot) []power.Slot {
	out := make([]power.Slot, len(slots))
	for i, s := range slots {
		out[i] = power.Slot{Label: s.Label, MinW: s.MinW, MaxW: s.MaxW}
	}
	return out
}

// svcProxy forwards profile.Notifier and accessory.ConnectionNotifier
// calls to the RPC service once it exists. The engine and accessory
// worker are both built before the service (which needs the engine),
// so this breaks the construction cycle; svc is set once, before
// either worker is started.
type svcProxy struct {
	svc *rpcsvc.Service
}

func (p *svcProxy) ActiveProfileChanged(id string) {
	if p.svc != nil {
		p.svc.ActiveProfileChanged(id)
	}
}

func (p *svcProxy) ProfileCatalogChanged() {
	if p.svc != nil {
		p.svc.ProfileCatalogChanged()
	}
}

func (p *svcProxy) AccessoryConnectionChanged(connected bool) {
	if p.svc != nil {
		p.svc.AccessoryConnectionChanged(connected)
	}
}

// ecAccessoryScanner adapts the water cooler's EC "connected" field
// into worker/accessory's Scanner. Real BLE discovery of the
// accessory is out of scope (§9 Non-goals); the EC already reports
// connection state unconditionally once WaterCoolerSupported is set,
// so that field stands in for the scan result.
type ecAccessoryScanner struct {
	wc *watercooler.Controller
}

func (s ecAccessoryScanner) Scan(ctx context.Context) (bool, error) {
	connected, ok := s.wc.GetConnected()
	if !ok {
		return false, errors.New("accessory: EC connected field unavailable")
	}
	return connected, nil
}
