// Copyright (c) 2017-2020 The lyra developers

package mempool

import (
	l "github.com/lyrachain/lyra/log"
)

// log is the package logger.  It starts as a child of the root logger
// tagged with the module name, so output follows the root verbosity, and
// UseLogger replaces it.
var log l.Logger

func init() {
	UseLogger(l.New("module", "mempool"))
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger l.Logger) {
	log = logger
}

// logClosure is a closure that can be printed with %v to be used to
// generate expensive-to-create data for a detailed log level and avoid doing
// the work if the data isn't printed.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
