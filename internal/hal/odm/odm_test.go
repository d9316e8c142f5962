package odm

import "testing"

func TestSetModeRejectsUnknownName(t *testing.T) {
	c := New(nil, []string{"quiet", "balanced", "performance"})
	if err := c.SetMode("turbo"); err == nil {
		t.Fatal("expected error for unknown mode name")
	}
}

func TestAvailableReturnsCopy(t *testing.T) {
	modes := []string{"quiet", "balanced"}
	c := New(nil, modes)
	got := c.Available()
	got[0] = "mutated"
	if c.modes[0] != "quiet" {
		t.Fatal("Available() leaked internal slice backing array")
	}
}

func TestIndexOf(t *testing.T) {
	c := New(nil, []string{"quiet", "balanced", "performance"})
	if idx := c.indexOf("balanced"); idx != 1 {
		t.Fatalf("indexOf(balanced) = %d, want 1", idx)
	}
	if idx := c.indexOf("missing"); idx != -1 {
		t.Fatalf("indexOf(missing) = %d, want -1", idx)
	}
}
