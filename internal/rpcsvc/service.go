// Package rpcsvc is the D-Bus RPC surface: one exported object
// implementing every Query/Control/Manage-hardware method, authz-gated
// dispatch, and the daemon's outbound signals.
package rpcsvc

import (
	"context"
	"runtime"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/uccd-project/uccd/internal/authz"
	"github.com/uccd-project/uccd/internal/deviceid"
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
	"github.com/uccd-project/uccd/internal/profile"
	"github.com/uccd-project/uccd/internal/ucerr"
	"github.com/uccd-project/uccd/internal/worker/fanctl"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

const (
	// BusName is the well-known system-bus name the daemon claims.
	BusName = "com.uccdproject.uccd"
	// ObjectPath is the single object every method is exported under.
	ObjectPath dbus.ObjectPath = "/com/uccdproject/uccd"
	// InterfaceName is identical to BusName, per §6.
	InterfaceName = "com.uccdproject.uccd"

	errNamePrefix = "com.uccdproject.uccd.Error."
)

// HAL collects the capability controllers the RPC surface reads from
// directly (a broader set than profile.HAL, which only has what
// apply() drives: this layer also answers telemetry/status queries
// such as GPU temps or water-cooler connection state). Every field may
// be nil when the device capability record says the feature is absent.
type HAL struct {
	CPU         *cpufreq.Controller
	Charging    *charging.Controller
	ODM         *odm.Controller
	Keyboard    *keyboard.Controller
	Display     *display.Controller
	Webcam      *webcam.Controller
	FnLock      *fnlock.Controller
	Fan         *fan.Controller
	WaterCooler *watercooler.Controller
	GPU         *gpu.Controller
	Power       *power.Controller
}

// Service is the exported D-Bus object (C10). One instance per
// daemon process.
type Service struct {
	conn        *dbus.Conn
	engine      *profile.Engine
	store       *metrics.Store
	hal         HAL
	identity    deviceid.Identity
	gate        *authz.Gate
	powerWorker *powerstate.Worker
	fanWorker   *fanctl.Worker
	log         *logrus.Entry

	// sem bounds concurrent expensive handlers (those that reach the
	// authorization gate's policy round-trip) to GOMAXPROCS, so a
	// caller waiting on an interactive polkit prompt never starves
	// the rest of the pool (§9's "handlers run on a small pool").
	sem chan struct{}
}

// NewService builds a Service. Register must be called separately to
// put it on the bus. powerWorker may be nil until the daemon
// controller has started it; GetPowerState reports "" until then.
func NewService(conn *dbus.Conn, engine *profile.Engine, store *metrics.Store, hal HAL, identity deviceid.Identity, gate *authz.Gate, powerWorker *powerstate.Worker, log *logrus.Entry) *Service {
	return &Service{
		conn:        conn,
		engine:      engine,
		store:       store,
		hal:         hal,
		identity:    identity,
		gate:        gate,
		powerWorker: powerWorker,
		log:         log.WithField("component", "rpcsvc"),
		sem:         make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// SetPowerWorker wires the power-state worker once the daemon
// controller has started it, later in the boot sequence than Service
// itself is built.
func (s *Service) SetPowerWorker(w *powerstate.Worker) {
	s.powerWorker = w
}

// SetFanWorker wires the fan-control worker once the daemon controller
// has started it. ApplyFanProfiles is a no-op error until then.
func (s *Service) SetFanWorker(w *fanctl.Worker) {
	s.fanWorker = w
}

// Register exports the object, claims the well-known bus name, and
// logs whether the process was launched via systemd socket activation
// (informational only: bus-activation itself is handled by
// dbus-daemon from the service's .service/.bus-name files, not by
// adopting a listener here).
func (s *Service) Register() error {
	if files := activation.Files(false); len(files) > 0 {
		s.log.WithField("fds", len(files)).Info("started under systemd socket activation")
	}

	if err := s.conn.Export(s, ObjectPath, InterfaceName); err != nil {
		return errors.Wrap(err, "rpcsvc: exporting object")
	}

	reply, err := s.conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return errors.Wrap(err, "rpcsvc: requesting bus name")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.Errorf("rpcsvc: bus name %s already owned", BusName)
	}
	s.log.WithField("name", BusName).Info("claimed bus name")
	return nil
}

// Unregister releases the bus name on shutdown.
func (s *Service) Unregister() {
	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.log.WithError(err).Warn("failed to release bus name")
	}
}

// callerPID resolves a D-Bus unique connection name to its owning
// process id via the bus driver, the standard way to identify a
// caller for a polkit subject (§4.9).
func (s *Service) callerPID(sender dbus.Sender) (uint32, error) {
	var pid uint32
	obj := s.conn.Object("org.freedesktop.DBus", "/org/freedesktop/DBus")
	call := obj.Call("org.freedesktop.DBus.GetConnectionUnixProcessID", 0, string(sender))
	if call.Err != nil {
		return 0, call.Err
	}
	if err := call.Store(&pid); err != nil {
		return 0, err
	}
	return pid, nil
}

// authorize resolves the caller's pid and checks it against action.
// Read-tagged calls never reach the semaphore or the policy
// round-trip (authz.Gate itself bypasses Read, but we also skip pid
// resolution here to avoid the extra bus round-trip on the hot query
// path).
func (s *Service) authorize(sender dbus.Sender, action authz.Action) *dbus.Error {
	if action == authz.Read {
		return nil
	}

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	pid, err := s.callerPID(sender)
	if err != nil {
		return dbus.MakeFailedError(errors.Wrap(err, "rpcsvc: resolving caller pid"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), authz.CheckTimeout)
	defer cancel()
	if err := s.gate.CheckAuthorization(ctx, pid, action); err != nil {
		return errToDBus(err)
	}
	return nil
}

// errToDBus classifies err (normally a *ucerr.Error, possibly wrapped)
// into a named D-Bus error so clients can dispatch on its taxonomy
// kind instead of parsing a message string (§7).
func errToDBus(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	if uce, ok := ucerr.As(err); ok {
		return dbus.NewError(errNamePrefix+uce.Kind.String(), []interface{}{uce.Error()})
	}
	return dbus.NewError(errNamePrefix+"Internal", []interface{}{err.Error()})
}

// --- Signal emission (§4.10: minimal, ids-only payloads). ---

func (s *Service) emit(name string, body ...interface{}) {
	if err := s.conn.Emit(ObjectPath, InterfaceName+"."+name, body...); err != nil {
		s.log.WithError(err).WithField("signal", name).Warn("failed to emit signal")
	}
}

// ActiveProfileChanged implements profile.Notifier.
func (s *Service) ActiveProfileChanged(id string) {
	s.emit("ActiveProfileChanged", id)
}

// ProfileCatalogChanged implements profile.Notifier.
func (s *Service) ProfileCatalogChanged() {
	s.emit("ProfileCatalogChanged")
}

// PowerStateChanged is called by the daemon controller after the
// power-state worker resolves a new state (the worker itself only
// knows profile.Engine's Resolver interface, not the RPC layer).
func (s *Service) PowerStateChanged(state string) {
	s.emit("PowerStateChanged", state)
}

// AccessoryConnectionChanged implements worker/accessory.ConnectionNotifier.
func (s *Service) AccessoryConnectionChanged(connected bool) {
	s.emit("AccessoryConnectionChanged", connected)
}
