package logging

import (
	"errors"
	"testing"
)

func TestJournalFieldName(t *testing.T) {
	cases := map[string]string{
		"component":  "COMPONENT",
		"cpu-temp":   "CPU_TEMP",
		"alreadyOK":  "ALREADYOK",
		"123numeric": "F_123NUMERIC",
	}
	for in, want := range cases {
		if got := journalFieldName(in); got != want {
			t.Errorf("journalFieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToString(t *testing.T) {
	if got := toString("already a string"); got != "already a string" {
		t.Errorf("toString(string) = %q", got)
	}
	if got := toString(errors.New("boom")); got != "boom" {
		t.Errorf("toString(error) = %q", got)
	}
	if got := toString(42); got != "42" {
		t.Errorf("toString(int) = %q", got)
	}
}
