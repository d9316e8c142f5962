package sysfsattr

import (
	"testing"

	"github.com/spf13/afero"
)

func TestAttrReadWriteRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/sys/devices/system/cpu/cpu0/online"

	afero.WriteFile(fs, path, []byte("1\n"), 0644)
	a := New(fs, path, KindBool)

	if !a.IsAvailable() {
		t.Fatal("expected attribute to be available")
	}

	v, ok := a.ReadBool()
	if !ok || !v {
		t.Fatalf("ReadBool() = (%v, %v), want (true, true)", v, ok)
	}

	if err := a.WriteBool(false); err != nil {
		t.Fatalf("WriteBool() error: %v", err)
	}

	v, ok = a.ReadBool()
	if !ok || v {
		t.Fatalf("after write, ReadBool() = (%v, %v), want (false, true)", v, ok)
	}
}

func TestAttrReadAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/sys/does/not/exist", KindInt)

	if a.IsAvailable() {
		t.Fatal("expected attribute to be unavailable")
	}
	if _, ok := a.ReadInt(); ok {
		t.Fatal("expected ReadInt() to report absence")
	}
}

func TestAttrReadIntList(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/sys/devices/system/cpu/possible"
	afero.WriteFile(fs, path, []byte("0-3 5\n"), 0644)

	a := New(fs, path, KindIntList)
	got, ok := a.ReadIntList()
	if !ok {
		t.Fatal("expected ReadIntList() to succeed")
	}
	want := []int{0, 1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("ReadIntList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadIntList() = %v, want %v", got, want)
		}
	}
}
