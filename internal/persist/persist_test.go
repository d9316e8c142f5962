package persist

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/etc/uccd", testLogger())

	in := []widget{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	if err := s.Save("widgets", 1, in, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	var out []widget
	extra, err := s.Load("widgets", 1, &out)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(out) != 2 || out[0].Name != "a" || out[1].Count != 2 {
		t.Fatalf("Load() = %+v, want round-tripped %+v", out, in)
	}
	if extra != nil {
		t.Fatalf("extra = %v, want nil", extra)
	}
}

func TestLoadMissingCategoryReturnsNilNoError(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/etc/uccd", testLogger())

	var out []widget
	extra, err := s.Load("nonexistent", 1, &out)
	if err != nil {
		t.Fatalf("Load() error on missing category: %v", err)
	}
	if extra != nil || len(out) != 0 {
		t.Fatalf("Load() = (%v, %v), want (nil, empty)", out, extra)
	}
}

func TestUnknownFieldsRoundTripThroughExtra(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/etc/uccd", testLogger())

	// Simulate fields this version doesn't know about, stored under the
	// envelope's "extra" key.
	rawExtra := json.RawMessage(`"some-future-flag-value"`)
	if err := s.Save("widgets", 1, []widget{{Name: "a"}}, map[string]json.RawMessage{
		"futureFlag": rawExtra,
	}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	var out []widget
	extra, err := s.Load("widgets", 1, &out)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(extra["futureFlag"]) != string(rawExtra) {
		t.Fatalf("extra[futureFlag] = %s, want %s", extra["futureFlag"], rawExtra)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/etc/uccd", testLogger())

	if err := s.Save("widgets", 5, []widget{{Name: "a"}}, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	var out []widget
	if _, err := s.Load("widgets", 1, &out); err == nil {
		t.Fatal("expected error loading a newer-versioned envelope")
	}
}

func TestAutosaveRotation(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/etc/uccd", testLogger())

	if err := s.Save("widgets", 1, []widget{{Name: "gen0"}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("widgets", 1, []widget{{Name: "gen1"}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("widgets", 1, []widget{{Name: "gen2"}}, nil); err != nil {
		t.Fatal(err)
	}

	gen1Exists, _ := afero.Exists(fs, "/etc/uccd/autosave/widgets.json.1")
	gen2Exists, _ := afero.Exists(fs, "/etc/uccd/autosave/widgets.json.2")
	if !gen1Exists || !gen2Exists {
		t.Fatalf("expected both autosave generations to exist after 3 saves")
	}

	body, err := afero.ReadFile(fs, "/etc/uccd/autosave/widgets.json.1")
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatal(err)
	}
	var got []widget
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "gen1" {
		t.Fatalf("autosave gen1 = %+v, want the second-to-last save (gen1)", got)
	}
}
