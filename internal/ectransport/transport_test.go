package ectransport

import (
	"os"
	"testing"
)

func TestOpenMissingDeviceIsUnsupported(t *testing.T) {
	_, err := Open("/dev/does-not-exist-uccd-ec")
	if err == nil {
		t.Fatal("expected error opening a missing device node")
	}
}

func TestTransportCloseIdempotent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ec-*")
	if err != nil {
		t.Fatal(err)
	}
	tr := &Transport{file: f, path: f.Name()}

	if err := tr.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}

func TestGetFieldOnClosedTransportIsAbsent(t *testing.T) {
	tr := &Transport{}
	if _, ok := tr.GetField(0x10); ok {
		t.Fatal("expected GetField on a closed transport to report absent")
	}
}
