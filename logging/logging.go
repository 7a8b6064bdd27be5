package logging

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var Default = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "ingest",
})

// Init configures the shared logger for the given mode (dev, prod or none).
// Unknown modes fall back to debug output.
func Init(mode string) {
	Default.SetTimeFormat("2006-01-02 15:04:05")
	Default.SetReportTimestamp(true)
	Default.SetReportCaller(true)
	Default.SetLevel(LevelFor(mode))

	if mode != "" && !knownMode(mode) {
		Default.Warnf("unknown log mode %q, using debug level", mode)
	}
}

func LevelFor(mode string) log.Level {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod":
		return log.InfoLevel
	case "none":
		return log.FatalLevel
	default:
		return log.DebugLevel
	}
}

func knownMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dev", "prod", "none":
		return true
	}
	return false
}
