// Package log holds the process-wide loggers. The TUI owns the terminal, so
// everything is written to a file in the OS temp directory.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	sentrypkg "github.com/kastheco/discovery/internal/sentry"
)

var (
	InfoLog    = log.New(os.Stderr, "INFO:", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLog = log.New(os.Stderr, "WARNING:", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLog   = log.New(os.Stderr, "ERROR:", log.Ldate|log.Ltime|log.Lshortfile)
)

// logFileName is a var so tests can point it somewhere else.
var logFileName = filepath.Join(os.TempDir(), "discovery.log")

var globalLogFile *os.File

// Initialize opens the log file and points every logger at it. When echo is
// true, lines are also copied to stderr (used by the non-interactive
// subcommands). Warnings and errors are teed to sentry.
func Initialize(echo bool) {
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		panic(fmt.Sprintf("could not open log file: %s", err))
	}

	var out io.Writer = f
	if echo {
		out = io.MultiWriter(f, os.Stderr)
	}

	InfoLog = log.New(sentrypkg.NewWriter(out, sentrypkg.LevelInfo), "INFO:", log.Ldate|log.Ltime|log.Lshortfile)
	WarningLog = log.New(sentrypkg.NewWriter(out, sentrypkg.LevelWarning), "WARNING:", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLog = log.New(sentrypkg.NewWriter(out, sentrypkg.LevelError), "ERROR:", log.Ldate|log.Ltime|log.Lshortfile)

	globalLogFile = f
}

// Close flushes and closes the log file. Safe to call without Initialize.
func Close() {
	if globalLogFile == nil {
		return
	}
	_ = globalLogFile.Close()
	globalLogFile = nil
	fmt.Fprintf(os.Stderr, "wrote logs to %s\n", logFileName)
}

// Path returns the log file location.
func Path() string {
	return logFileName
}
