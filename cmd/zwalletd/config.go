// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/robustfengbin/zwallet/chaincfg"
)

const (
	defaultConfigFilename = "zwalletd.conf"
	defaultLogFilename    = "zwalletd.log"
	defaultDataDirname    = "data"
)

// config defines the configuration options for zwalletd.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	TestNet bool `long:"testnet" description:"Use the test network"`

	RPCConnect   string   `long:"rpcconnect" description:"Primary Zcash node RPC URL"`
	RPCFallbacks []string `long:"rpcfallback" description:"Ordered fallback RPC URLs (may be repeated)"`
	RPCUser      string   `long:"rpcuser" description:"RPC username"`
	RPCPass      string   `long:"rpcpass" default-mask:"-" description:"RPC password"`

	DBDriver string `long:"dbdriver" description:"Wallet database driver {leveldb, postgres}"`
	PGHost   string `long:"pghost" description:"Postgres host (dbdriver=postgres)"`
	PGPort   int    `long:"pgport" description:"Postgres port"`
	PGUser   string `long:"pguser" description:"Postgres user"`
	PGPass   string `long:"pgpass" default-mask:"-" description:"Postgres password"`
	PGName   string `long:"pgname" description:"Postgres database name"`

	CheckpointInterval uint64 `long:"checkpointinterval" description:"Blocks between durable scan checkpoints"`
	BatchSize          int    `long:"rpcbatchsize" description:"Block fetch batch size and fan-out"`
	ProverWorkers      int    `long:"proverworkers" description:"Proof worker pool size"`

	params *chaincfg.Params
}

// defaultConfig returns the zwalletd defaults.
func defaultConfig() *config {
	home := appDataDir()
	return &config{
		ConfigFile:         filepath.Join(home, defaultConfigFilename),
		DataDir:            filepath.Join(home, defaultDataDirname),
		LogDir:             filepath.Join(home, "logs"),
		DebugLevel:         "info",
		RPCConnect:         "http://127.0.0.1:8232",
		DBDriver:           "leveldb",
		PGHost:             "localhost",
		PGPort:             5432,
		PGUser:             "zwallet",
		PGName:             "zwallet",
		CheckpointInterval: 500,
		BatchSize:          25,
		ProverWorkers:      4,
	}
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".zwalletd")
}

// loadConfig initializes and parses the config using a config file and
// command line options, command line taking precedence.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	preParser := flags.NewParser(cfg, flags.HelpFlag)
	if _, err := preParser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, err
	}

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		parser := flags.NewParser(cfg, flags.Default)
		iniParser := flags.NewIniParser(parser)
		if err := iniParser.ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		// Re-apply command line over config-file values.
		if _, err := parser.Parse(); err != nil {
			return nil, err
		}
	}

	cfg.params = &chaincfg.MainNetParams
	if cfg.TestNet {
		cfg.params = &chaincfg.TestNetParams
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	return cfg, nil
}
