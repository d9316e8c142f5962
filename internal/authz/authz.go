// Package authz implements the authorization gate: every mutating RPC
// is checked against the system policy service before its handler
// runs; read-only methods bypass the gate entirely.
package authz

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/uccd-project/uccd/internal/ucerr"
)

// Action is one of the three authorization classes every RPC method
// is tagged with.
type Action int

const (
	Read Action = iota
	Control
	ManageHardware
)

func (a Action) String() string {
	switch a {
	case Read:
		return "read"
	case Control:
		return "control"
	case ManageHardware:
		return "manage-hardware"
	default:
		return "unknown"
	}
}

// policyActionID maps an Action to the polkit action id the daemon is
// registered under.
func (a Action) policyActionID() string {
	switch a {
	case Control:
		return "com.uccdproject.uccd.control"
	case ManageHardware:
		return "com.uccdproject.uccd.manage-hardware"
	default:
		return "com.uccdproject.uccd.read"
	}
}

// CheckTimeout bounds how long a single authorization check (which may
// involve an interactive policy prompt) is allowed to take, per §4.9.
const CheckTimeout = 60 * time.Second

// PolicyChecker asks the system policy service whether pid is
// authorized for actionID.
type PolicyChecker interface {
	CheckAuthorization(ctx context.Context, pid uint32, actionID string, allowInteractive bool) (authorized bool, err error)
}

// Gate is the authorization gate (C9). Read-tagged methods never
// invoke it (§4.9: "read action effectively always allowed for local
// callers", implemented as a bypass rather than an always-true check
// so the 60s budget is never spent on a hot query path).
type Gate struct {
	checker PolicyChecker
	log     *logrus.Entry
}

// New builds a Gate around a PolicyChecker (production: PolkitChecker).
func New(checker PolicyChecker, log *logrus.Entry) *Gate {
	return &Gate{checker: checker, log: log.WithField("component", "authz.gate")}
}

// CheckAuthorization extracts no state itself; callers (the RPC layer)
// supply the caller's process id, already resolved from the incoming
// D-Bus message's sender. Returns ucerr.AuthDenied on denial, nil on
// allow. Read-tagged calls should not reach here at all.
func (g *Gate) CheckAuthorization(ctx context.Context, pid uint32, action Action) error {
	if action == Read {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	ok, err := g.checker.CheckAuthorization(ctx, pid, action.policyActionID(), true)
	if err != nil {
		return ucerr.New(ucerr.AuthDenied, "authz.CheckAuthorization", errors.Wrap(err, "policy service call failed"))
	}
	if !ok {
		return ucerr.New(ucerr.AuthDenied, "authz.CheckAuthorization", errors.Errorf("caller pid %d denied for action %s", pid, action))
	}
	return nil
}
