package authz

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/uccd-project/uccd/internal/ucerr"
)

type fakeChecker struct {
	allow     bool
	err       error
	lastPID   uint32
	lastID    string
	callCount int
}

func (f *fakeChecker) CheckAuthorization(ctx context.Context, pid uint32, actionID string, allowInteractive bool) (bool, error) {
	f.callCount++
	f.lastPID = pid
	f.lastID = actionID
	return f.allow, f.err
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestReadBypassesCheckerEntirely(t *testing.T) {
	checker := &fakeChecker{allow: false}
	g := New(checker, testLogger())

	if err := g.CheckAuthorization(context.Background(), 1234, Read); err != nil {
		t.Fatalf("CheckAuthorization(Read) error: %v", err)
	}
	if checker.callCount != 0 {
		t.Fatalf("checker called %d times for a Read action, want 0", checker.callCount)
	}
}

func TestControlDeniedReturnsAuthDenied(t *testing.T) {
	checker := &fakeChecker{allow: false}
	g := New(checker, testLogger())

	err := g.CheckAuthorization(context.Background(), 42, Control)
	if err == nil {
		t.Fatal("expected an error for a denied Control action")
	}
	if !ucerr.Is(err, ucerr.AuthDenied) {
		t.Fatalf("error = %v, want ucerr.AuthDenied", err)
	}
	if checker.lastPID != 42 || checker.lastID != "com.uccdproject.uccd.control" {
		t.Fatalf("checker called with pid=%d id=%q", checker.lastPID, checker.lastID)
	}
}

func TestManageHardwareAllowed(t *testing.T) {
	checker := &fakeChecker{allow: true}
	g := New(checker, testLogger())

	if err := g.CheckAuthorization(context.Background(), 7, ManageHardware); err != nil {
		t.Fatalf("CheckAuthorization() error: %v", err)
	}
	if checker.lastID != "com.uccdproject.uccd.manage-hardware" {
		t.Fatalf("lastID = %q", checker.lastID)
	}
}
