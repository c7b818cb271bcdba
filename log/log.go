/*
 * Copyright (c) 2017-2020 The lyra developers
 */

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	elog "github.com/ethereum/go-ethereum/log"
	"github.com/jrick/logrotate/rotator"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger is the structured key-value logger handed out to packages.
type Logger = elog.Logger

// Lvl is a log verbosity level.
type Lvl = elog.Lvl

const (
	LvlCrit  = elog.LvlCrit
	LvlError = elog.LvlError
	LvlWarn  = elog.LvlWarn
	LvlInfo  = elog.LvlInfo
	LvlDebug = elog.LvlDebug
	LvlTrace = elog.LvlTrace
)

var (
	glogger *elog.GlogHandler

	logWrite *logWriter
)

// logWriter implements an io.Writer that outputs to both standard error and
// the write-end pipe of an initialized log rotator.
type logWriter struct {
	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// Use for color terminal
	colorableWrite io.Writer
}

func (lw *logWriter) Init() {
	// init a colorful logger if possible
	usecolor := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("TERM") != "dumb"

	if usecolor {
		lw.colorableWrite = colorable.NewColorableStderr()
	}
}

func (lw *logWriter) Close() {
	if lw.logRotator != nil {
		lw.logRotator.Close()
	}
}

func (lw *logWriter) IsUseColor() bool {
	return lw.colorableWrite != nil
}

func (lw *logWriter) Write(p []byte) (n int, err error) {
	if lw.logRotator != nil {
		lw.logRotator.Write(p)
	}

	if lw.colorableWrite != nil {
		lw.colorableWrite.Write(p)
	} else {
		os.Stderr.Write(p)
	}
	return len(p), nil
}

func init() {
	// output set to Stderr
	// it's easier to handle when run as a daemon through systemd or supervisord,
	// and Go runtime exceptions are printed to stderr as well.
	logWrite = &logWriter{}
	logWrite.Init()
	glogger = elog.NewGlogHandler(elog.StreamHandler(io.Writer(logWrite), elog.TerminalFormat(logWrite.IsUseColor())))

	elog.Root().SetHandler(glogger)

	glogger.Verbosity(elog.LvlInfo)
}

// New returns a child logger carrying the given context key-value pairs.
func New(ctx ...interface{}) Logger {
	return elog.Root().New(ctx...)
}

// Root returns the root logger.
func Root() Logger {
	return elog.Root()
}

// Glogger returns the process-wide glog filter handler.
func Glogger() *elog.GlogHandler {
	return glogger
}

// Verbosity sets the global verbosity level.
func Verbosity(lvl Lvl) {
	glogger.Verbosity(lvl)
}

// LvlFromString resolves a verbosity name ("trace", "debug", ...) to a level.
func LvlFromString(s string) (Lvl, error) {
	return elog.LvlFromString(s)
}

// InitLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func InitLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	logWrite.logRotator = r
}

// LogWrite returns the process-wide log sink.
func LogWrite() *logWriter {
	return logWrite
}
