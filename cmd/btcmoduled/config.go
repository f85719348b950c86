// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/Swapso-App/BTC-module/chain"
	"github.com/Swapso-App/BTC-module/pkg/btcunit"
	"github.com/Swapso-App/BTC-module/rpc"
	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename  = "btcmoduled.conf"
	defaultLogDirname      = "logs"
	defaultNetwork         = "mainnet"
	defaultLogLevel        = "info"
	defaultAddresses       = 1
	defaultShutdownTimeout = 10 * time.Second
)

var (
	defaultAppDataDir = btcutil.AppDataDir("btcmoduled", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir,
		defaultConfigFilename)
	defaultLogDir = filepath.Join(defaultAppDataDir, defaultLogDirname)

	// errMissingMnemonic is returned when no mnemonic is configured.
	errMissingMnemonic = errors.New("a mnemonic is required, set " +
		"--mnemonic or BTCMODULE_MNEMONIC (use --genmnemonic to " +
		"create one)")
)

type config struct {
	// General application behavior.
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	GenMnemonic bool   `long:"genmnemonic" description:"Print a new BIP39 mnemonic and exit"`
	Network     string `long:"network" description:"Bitcoin network to use" choice:"mainnet" choice:"testnet" choice:"signet" choice:"regtest"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} or <subsystem>=<level>,..."`

	// Keys.
	Mnemonic   string `long:"mnemonic" env:"BTCMODULE_MNEMONIC" description:"BIP39 mnemonic the wallet keys are derived from"`
	Passphrase string `long:"passphrase" env:"BTCMODULE_PASSPHRASE" description:"Optional BIP39 passphrase"`
	Addresses  uint32 `long:"addresses" description:"Number of receiving addresses to derive at startup"`

	// Chain backend.
	EsploraURL     string        `long:"esploraurl" description:"Esplora REST API base URL, empty uses the network's public default"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"Timeout of each Esplora request"`
	MaxConcurrency int           `long:"maxconcurrency" description:"Maximum parallel transaction lookups"`

	// Fee policy.
	DustLimit  int64   `long:"dustlimit" description:"Smallest change output in satoshis that will be created"`
	FeeBuffer  int64   `long:"feebuffer" description:"Satoshis added to every final fee quote"`
	MinConfs   uint32  `long:"minconfs" description:"Minimum confirmations of spent outputs"`
	MaxFeeRate float64 `long:"maxfeerate" description:"Highest fee rate in sat/vb a send may use"`

	// RPC server.
	Listen          string        `long:"listen" description:"Address the HTTP API listens on"`
	CORSOrigins     []string      `long:"corsorigin" description:"Origin allowed to call the API, may be repeated, none allows any origin"`
	ShutdownTimeout time.Duration `long:"shutdowntimeout" description:"Time allowed for in-flight requests on shutdown"`

	params  *chaincfg.Params
	maxRate btcunit.SatPerVByte
}

// defaultConfig returns a config populated with default values.
func defaultConfig() config {
	return config{
		ConfigFile:      defaultConfigFile,
		Network:         defaultNetwork,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		Addresses:       defaultAddresses,
		RequestTimeout:  chain.DefaultRequestTimeout,
		MaxConcurrency:  chain.DefaultMaxConcurrency,
		DustLimit:       int64(wallet.DefaultDustLimit),
		FeeBuffer:       int64(wallet.DefaultFeeBuffer),
		MaxFeeRate:      wallet.DefaultMaxFeeRate.Float64(),
		Listen:          rpc.DefaultListen,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// netParams returns the chain parameters of a network name.
func netParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser
	// to otheruser's home directory. On Windows, both forward and backward
	// slashes can be used.
	if path[0] == '~' {
		var homeDir string

		userName := path[1:]
		if i := strings.IndexAny(userName, `/\`); i >= 0 {
			path = userName[i:]
			userName = userName[:i]
		} else {
			path = ""
		}

		if userName == "" {
			u, err := user.Current()
			if err == nil {
				homeDir = u.HomeDir
			} else {
				homeDir = os.Getenv("HOME")
			}
		} else {
			u, err := user.Lookup(userName)
			if err == nil {
				homeDir = u.HomeDir
			}
		}

		path = homeDir + path
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in the daemon functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence.
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	// Load additional config from file. A missing default config file is
	// not an error.
	parser := flags.NewParser(&cfg, flags.Default)
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) ||
			preCfg.ConfigFile != defaultConfigFile {

			return nil, fmt.Errorf("error parsing config file: %w",
				err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.GenMnemonic {
		return &cfg, nil
	}

	cfg.params, err = netParams(cfg.Network)
	if err != nil {
		return nil, err
	}

	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.Network)

	if cfg.Mnemonic == "" {
		return nil, errMissingMnemonic
	}

	if cfg.DustLimit < 0 || cfg.FeeBuffer < 0 {
		return nil, fmt.Errorf("dust limit and fee buffer must not be "+
			"negative: %d, %d", cfg.DustLimit, cfg.FeeBuffer)
	}

	cfg.maxRate, err = btcunit.ParseSatPerVByte(cfg.MaxFeeRate)
	if err != nil || !cfg.maxRate.IsPositive() {
		return nil, fmt.Errorf("invalid max fee rate %v", cfg.MaxFeeRate)
	}

	return &cfg, nil
}

// feePolicy returns the configured coin selection and fee policy.
func (c *config) feePolicy() wallet.FeePolicy {
	return wallet.FeePolicy{
		DustLimit: btcutil.Amount(c.DustLimit),
		FeeBuffer: btcutil.Amount(c.FeeBuffer),
	}
}

