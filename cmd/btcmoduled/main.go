// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command btcmoduled serves the fee quote and payment API of a BIP84 wallet
// backed by an Esplora chain source.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Swapso-App/BTC-module/chain"
	"github.com/Swapso-App/BTC-module/rpc"
	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/jessevdk/go-flags"
)

func main() {
	if err := btcmoduledMain(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// btcmoduledMain is the real main function. It is necessary to work around
// the fact that deferred functions do not run when os.Exit() is called.
func btcmoduledMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.GenMnemonic {
		mnemonic, err := wallet.NewMnemonic()
		if err != nil {
			return err
		}

		fmt.Println(mnemonic)

		return nil
	}

	err = initLogRotator(filepath.Join(cfg.LogDir, logFileName))
	if err != nil {
		return err
	}
	defer logRotator.Close()

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	server, err := newServer(cfg)
	if err != nil {
		log.Errorf("Unable to create server: %v", err)
		return err
	}

	if err := server.Start(); err != nil {
		log.Errorf("Unable to start server: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	<-ctx.Done()
	log.Infof("Received shutdown signal, stopping server")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("Unable to stop server cleanly: %v", err)
		return err
	}

	log.Infof("Shutdown complete")

	return nil
}

// newServer wires the chain backend, keyring and wallet into an rpc server.
func newServer(cfg *config) (*rpc.Server, error) {
	esplora, err := chain.NewEsploraClient(chain.EsploraConfig{
		URL:            cfg.EsploraURL,
		Params:         cfg.params,
		Timeout:        cfg.RequestTimeout,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	if err != nil {
		return nil, err
	}

	keyring, err := wallet.NewKeyring(cfg.Mnemonic, cfg.Passphrase,
		cfg.params)
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < cfg.Addresses; i++ {
		if _, err := keyring.NewAddress(); err != nil {
			return nil, err
		}
	}

	log.Infof("Derived %d receiving addresses on %s", cfg.Addresses,
		cfg.params.Name)

	policy := cfg.feePolicy()
	w, err := wallet.New(wallet.Config{
		Chain:      esplora,
		Keyring:    keyring,
		Policy:     policy,
		MinConfs:   cfg.MinConfs,
		MaxFeeRate: cfg.maxRate,
	})
	if err != nil {
		return nil, err
	}

	return rpc.New(rpc.Config{
		Listen:       cfg.Listen,
		Wallet:       w,
		Quoter:       wallet.NewFeeQuoter(policy),
		Params:       cfg.params,
		AllowOrigins: cfg.CORSOrigins,
	})
}
