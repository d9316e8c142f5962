// Package logging builds the daemon's root logger: structured
// logrus output, mirrored to the systemd journal when running under
// it, so `journalctl -u uccd` carries the same fields as stderr.
package logging

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
)

// New builds the root logger. Journal mirroring is added only when
// journald is actually reachable (Enabled() checks JOURNAL_STREAM /
// the journald socket); otherwise the process is probably running
// under a plain terminal or a non-systemd init, and stderr suffices.
func New() *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if journal.Enabled() {
		log.AddHook(&journalHook{})
	}
	return logrus.NewEntry(log)
}

// journalHook forwards every logrus entry to the systemd journal at
// the matching priority, carrying logrus fields as journal fields.
type journalHook struct{}

func (h *journalHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *journalHook) Fire(entry *logrus.Entry) error {
	vars := make(map[string]string, len(entry.Data))
	for k, v := range entry.Data {
		vars[journalFieldName(k)] = toString(v)
	}
	return journal.Send(entry.Message, levelToPriority(entry.Level), vars)
}

func levelToPriority(l logrus.Level) journal.Priority {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return journal.PriCrit
	case logrus.ErrorLevel:
		return journal.PriErr
	case logrus.WarnLevel:
		return journal.PriWarning
	case logrus.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalFieldName uppercases a logrus field key into the
// [A-Z0-9_] alphabet journald fields are restricted to.
func journalFieldName(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]rune{'F', '_'}, out...)
	}
	return string(out)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", t)
	}
}
