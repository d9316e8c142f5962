// Package sysfsattr provides a typed reader/writer over text-formatted
// kernel attribute files (sysfs, hwmon). It is deliberately thin: one
// read, one parse, one write, no caching — callers decide their own
// polling cadence.
package sysfsattr

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Kind tags the element type an Attr parses to/from text.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindString
	KindIntList
	KindStringList
)

// Attr is a typed accessor bound to a single sysfs path.
type Attr struct {
	fs   afero.Fs
	path string
	kind Kind
}

// New binds an Attr of the given kind to path, using fs for all I/O.
// Production callers pass afero.NewOsFs(); tests pass afero.NewMemMapFs().
func New(fs afero.Fs, path string, kind Kind) *Attr {
	return &Attr{fs: fs, path: path, kind: kind}
}

// IsAvailable reports whether the path exists and is readable.
func (a *Attr) IsAvailable() bool {
	f, err := a.fs.Open(a.path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// ReadBool reads and parses a boolean attribute ("1"/"0", "Y"/"N",
// "true"/"false" all accepted on read for leniency with hwmon
// variants). Returns ok=false on absence or parse failure, never an
// error — read failures are not errors in this layer.
func (a *Attr) ReadBool() (val bool, ok bool) {
	raw, ok := a.readRaw()
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "y", "true":
		return true, true
	case "0", "n", "false":
		return false, true
	default:
		return false, false
	}
}

// ReadInt reads and parses a signed integer attribute.
func (a *Attr) ReadInt() (val int, ok bool) {
	raw, ok := a.readRaw()
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReadString reads a string attribute verbatim (trailing whitespace
// trimmed).
func (a *Attr) ReadString() (val string, ok bool) {
	return a.readRaw()
}

// ReadIntList reads a sequence<i32> attribute. Accepts both
// space-separated enumerations ("0 1 2") and hyphenated inclusive
// ranges ("0-3 5 7-9"), returning a sorted, de-duplicated slice.
func (a *Attr) ReadIntList() (val []int, ok bool) {
	raw, ok := a.readRaw()
	if !ok {
		return nil, false
	}
	list, err := ParseIntList(raw)
	if err != nil {
		return nil, false
	}
	return list, true
}

// ReadStringList reads a space-separated sequence<string> attribute.
func (a *Attr) ReadStringList() (val []string, ok bool) {
	raw, ok := a.readRaw()
	if !ok {
		return nil, false
	}
	fields := strings.Fields(raw)
	return fields, true
}

func (a *Attr) readRaw() (string, bool) {
	data, err := afero.ReadFile(a.fs, a.path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// WriteBool writes "1" or "0".
func (a *Attr) WriteBool(v bool) error {
	if v {
		return a.writeRaw("1")
	}
	return a.writeRaw("0")
}

// WriteInt writes the decimal representation of v.
func (a *Attr) WriteInt(v int) error {
	return a.writeRaw(strconv.Itoa(v))
}

// WriteString writes s as-is.
func (a *Attr) WriteString(s string) error {
	return a.writeRaw(s)
}

// WriteIntList writes a space-separated decimal list.
func (a *Attr) WriteIntList(vals []int) error {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return a.writeRaw(strings.Join(parts, " "))
}

func (a *Attr) writeRaw(s string) error {
	f, err := a.fs.OpenFile(a.path, osWriteFlags, 0644)
	if err != nil {
		return errors.Wrapf(err, "open %s for write", a.path)
	}
	defer f.Close()
	if _, err := f.Write([]byte(s)); err != nil {
		return errors.Wrapf(err, "write %s", a.path)
	}
	return nil
}
