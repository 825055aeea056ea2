// Package logger sets up the subsystem loggers used across the projection
// engine and its demo daemon. It follows the same shape as the logging
// package of the node this engine was lifted out of: a single backend,
// one logger per subsystem, and an optional rotated log file.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// SubsystemTags is an enum of all subsystem tags known to this module.
var SubsystemTags = struct {
	PJTN, // projection engine core (resolver, packer, delta)
	TMPL, // template builder worker
	TMPD string // cmd/tmpld daemon
}{
	PJTN: "PJTN",
	TMPL: "TMPL",
	TMPD: "TMPD",
}

var (
	logRotator *rotator.Rotator

	logWriter = writerFunc(func(p []byte) (int, error) {
		n, err := os.Stdout.Write(p)
		if logRotator != nil {
			_, _ = logRotator.Write(p)
		}
		return n, err
	})

	backendLog = btclog.NewBackend(logWriter)

	pjtnLog = backendLog.Logger(SubsystemTags.PJTN)
	tmplLog = backendLog.Logger(SubsystemTags.TMPL)
	tmpdLog = backendLog.Logger(SubsystemTags.TMPD)

	subsystemLoggers = map[string]btclog.Logger{
		SubsystemTags.PJTN: pjtnLog,
		SubsystemTags.TMPL: tmplLog,
		SubsystemTags.TMPD: tmpdLog,
	}
)

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// Get returns the logger registered for the given subsystem tag.
func Get(subsystemTag string) (btclog.Logger, bool) {
	log, ok := subsystemLoggers[subsystemTag]
	return log, ok
}

// InitLogRotator initializes a rotating log file at logFile. It must be
// called before any logger writes are expected to reach disk; logging to
// stdout works regardless.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}

	const maxRolls = 8
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// SetLogLevels sets the log level for every known subsystem. Invalid level
// names default to info, matching btclog.LevelFromString.
func SetLogLevels(levelName string) {
	level, _ := btclog.LevelFromString(levelName)
	for _, log := range subsystemLoggers {
		log.SetLevel(level)
	}
}

// DisableLog silences every subsystem logger; useful for tests.
func DisableLog() {
	SetLogLevels("off")
}

var _ io.Writer = logWriter
