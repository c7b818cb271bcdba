// Copyright (c) 2017-2020 The lyra developers

package tx

import (
	l "github.com/lyrachain/lyra/log"
)

// log is the package logger.  It starts as a child of the root logger
// tagged with the module name, so output follows the root verbosity, and
// UseLogger replaces it.
var log l.Logger

func init() {
	UseLogger(l.New("module", "txlogic"))
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger l.Logger) {
	log = logger
}
