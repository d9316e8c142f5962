// Package persist implements atomic, versioned load/save of the
// daemon's mutable state — custom profile catalogs and the
// power-state map — to a root-writable config directory.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DefaultDir is the production config root.
const DefaultDir = "/etc/uccd"

// Envelope wraps every persisted category. Entries under "extra" are
// returned by Load and written back by Save when the caller passes
// them in; other unknown top-level fields are dropped, and Load
// rejects an envelope whose version is newer than the caller's.
type Envelope struct {
	Version int                        `json:"version"`
	Data    json.RawMessage            `json:"data"`
	Extra   map[string]json.RawMessage `json:"extra,omitempty"`
}

// Store is the atomic load/save surface for one config directory.
type Store struct {
	fs  afero.Fs
	dir string
	log *logrus.Entry
}

// New builds a Store rooted at dir (production default DefaultDir).
func New(fs afero.Fs, dir string, log *logrus.Entry) *Store {
	return &Store{fs: fs, dir: dir, log: log.WithField("component", "persist")}
}

func (s *Store) mainPath(category string) string {
	return filepath.Join(s.dir, category+".json")
}

func (s *Store) autosaveDir() string {
	return filepath.Join(s.dir, "autosave")
}

// Load reads category's envelope. If the file does not exist it
// returns (nil, nil): an unpersisted category is not an error,
// it simply has no custom entries yet.
func (s *Store) Load(category string, version int, out interface{}) (map[string]json.RawMessage, error) {
	raw, err := afero.ReadFile(s.fs, s.mainPath(category))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "persist: read %s", category)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(err, "persist: decode %s envelope", category)
	}
	if env.Version > version {
		return nil, errors.Errorf("persist: %s envelope version %d newer than supported %d", category, env.Version, version)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, errors.Wrapf(err, "persist: decode %s data", category)
		}
	}
	return env.Extra, nil
}

// Save atomically writes category's envelope (temp file + fsync +
// rename), rotating the previous two generations into autosave/ first.
func (s *Store) Save(category string, version int, data interface{}, extra map[string]json.RawMessage) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "persist: create config dir")
	}

	if err := s.rotateAutosave(category); err != nil {
		s.log.WithError(err).WithField("category", category).Warn("autosave rotation failed, continuing with save")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "persist: encode %s data", category)
	}
	env := Envelope{Version: version, Data: raw, Extra: extra}
	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "persist: encode %s envelope", category)
	}

	return s.atomicWrite(s.mainPath(category), body)
}

func (s *Store) atomicWrite(path string, body []byte) error {
	tmp, err := afero.TempFile(s.fs, s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "persist: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return errors.Wrap(err, "persist: write temp file")
	}
	if syncer, ok := tmp.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			tmp.Close()
			s.fs.Remove(tmpName)
			return errors.Wrap(err, "persist: sync temp file")
		}
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrap(err, "persist: close temp file")
	}

	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrap(err, "persist: rename temp file into place")
	}
	return nil
}

// rotateAutosave shifts the previous two saved generations of
// category one slot back (gen1 -> gen2, current -> gen1) before the
// new save replaces the current file.
func (s *Store) rotateAutosave(category string) error {
	main := s.mainPath(category)
	exists, err := afero.Exists(s.fs, main)
	if err != nil || !exists {
		return err
	}

	if err := s.fs.MkdirAll(s.autosaveDir(), 0o755); err != nil {
		return err
	}

	gen1 := filepath.Join(s.autosaveDir(), fmt.Sprintf("%s.json.1", category))
	gen2 := filepath.Join(s.autosaveDir(), fmt.Sprintf("%s.json.2", category))

	if ok, _ := afero.Exists(s.fs, gen1); ok {
		s.fs.Remove(gen2)
		if err := s.fs.Rename(gen1, gen2); err != nil {
			return err
		}
	}

	body, err := afero.ReadFile(s.fs, main)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, gen1, body, 0o644)
}
