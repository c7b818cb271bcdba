// Copyright (c) 2017-2020 The lyra developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import "time"

// Config defines the configuration options for the node.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	HomeDir           string        `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion       bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile        string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir           string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir            string        `long:"logdir" description:"Directory to log output."`
	NoFileLogging     bool          `long:"nofilelogging" description:"Disable file logging."`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, crit}"`
	DebugPrintOrigins bool          `long:"printorigin" description:"Print log debug location (file:line) "`
	TestNet           bool          `long:"testnet" description:"Use the test network"`
	PrivNet           bool          `long:"privnet" description:"Use the private network"`

	// Transaction pool
	TxPoolStorageLimit   int           `long:"txpoolstoragelimit" description:"Max number of transactions held across the unverified, pending and ready lists"`
	TxPoolProcessEvery   time.Duration `long:"txpoolprocessinterval" description:"Interval between transaction pool promotion ticks.  Valid time units are {s, m, h}."`
	TxPoolExpireEvery    time.Duration `long:"txpoolexpiryinterval" description:"Interval between transaction pool expiry sweeps and invalid cache resets.  Valid time units are {s, m, h}."`
	NoTxPoolBroadcast    bool          `long:"notxpoolbroadcast" description:"Do not relay newly readied transactions to peers."`
}
