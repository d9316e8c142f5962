package authz

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	polkitDest  = "org.freedesktop.PolicyKit1"
	polkitPath  = "/org/freedesktop/PolicyKit1/Authority"
	polkitIface = "org.freedesktop.PolicyKit1.Authority"
)

// subjectKindUnixProcess is the PolicyKit1 "unix-process" subject
// kind: a process identified by pid, with start_time=0 meaning "don't
// check" per §4.9.
const subjectKindUnixProcess = "unix-process"

// PolkitChecker calls polkit's CheckAuthorization over the system
// bus, the production PolicyChecker for Gate.
type PolkitChecker struct {
	conn *dbus.Conn
}

// NewPolkitChecker wraps an already-connected system bus connection
// (shared with the RPC surface per §9's "same godbus/dbus/v5
// connection C10 uses").
func NewPolkitChecker(conn *dbus.Conn) *PolkitChecker {
	return &PolkitChecker{conn: conn}
}

// subject is the polkit wire struct {kind, details}.
type subject struct {
	Kind    string
	Details map[string]dbus.Variant
}

// CheckAuthorization implements authz.PolicyChecker.
func (p *PolkitChecker) CheckAuthorization(ctx context.Context, pid uint32, actionID string, allowInteractive bool) (bool, error) {
	subj := subject{
		Kind: subjectKindUnixProcess,
		Details: map[string]dbus.Variant{
			"pid":        dbus.MakeVariant(pid),
			"start-time": dbus.MakeVariant(uint64(0)),
		},
	}

	var flags uint32
	if allowInteractive {
		flags = 1 // CHECK_AUTHORIZATION_FLAGS_ALLOW_USER_INTERACTION
	}

	obj := p.conn.Object(polkitDest, dbus.ObjectPath(polkitPath))
	call := obj.CallWithContext(ctx, polkitIface+".CheckAuthorization", 0,
		subj, actionID, map[string]string{}, flags, "")
	if call.Err != nil {
		return false, errors.Wrap(call.Err, "polkit: CheckAuthorization call failed")
	}

	var result struct {
		IsAuthorized bool
		IsChallenge  bool
		Details      map[string]string
	}
	if err := call.Store(&result.IsAuthorized, &result.IsChallenge, &result.Details); err != nil {
		return false, errors.Wrap(err, "polkit: decoding CheckAuthorization reply")
	}
	return result.IsAuthorized, nil
}
