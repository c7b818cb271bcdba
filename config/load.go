// Copyright (c) 2017-2020 The lyra developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lyrachain/lyra/log"
)

const (
	defaultConfigFilename = "lyra.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lyra.log"

	defaultTxPoolStorageLimit = 4000
	defaultTxPoolProcessEvery = 30 * time.Second
	defaultTxPoolExpireEvery  = 30 * time.Second
)

var (
	defaultHomeDir    = appDataDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".lyra")
}

func newConfigParser(cfg *Config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// LoadConfig initializes and parses the config using a config file and
// the given command line arguments (normally os.Args[1:]). Defaults are
// applied first, then overridden by the config file, then overridden
// again by the command line.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := Config{
		HomeDir:            defaultHomeDir,
		ConfigFile:         defaultConfigFile,
		DebugLevel:         defaultLogLevel,
		DataDir:            defaultDataDir,
		LogDir:             defaultLogDir,
		TxPoolStorageLimit: defaultTxPoolStorageLimit,
		TxPoolProcessEvery: defaultTxPoolProcessEvery,
		TxPoolExpireEvery:  defaultTxPoolExpireEvery,
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.  Any errors aside from the help message error
	// can be ignored here since they will be caught by the final parse
	// below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	if preCfg.ConfigFile != "" {
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				fmt.Fprintln(os.Stderr, err)
				return nil, nil, err
			}
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		return nil, nil, err
	}

	if cfg.TxPoolStorageLimit < 0 {
		err := fmt.Errorf("the transaction pool storage limit may not be negative: %d", cfg.TxPoolStorageLimit)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	lvl, err := log.LvlFromString(cfg.DebugLevel)
	if err != nil {
		err := fmt.Errorf("the specified debug level [%s] is invalid", cfg.DebugLevel)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	log.Verbosity(lvl)

	return &cfg, remainingArgs, nil
}
