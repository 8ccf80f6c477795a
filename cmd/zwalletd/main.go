// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// zwalletd is the Zcash shielded-wallet engine daemon: it syncs the
// Orchard commitment tree for registered viewing keys, keeps
// spend-ready witnesses, and exposes the transfer machinery to the
// rest of the stack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robustfengbin/zwallet/chain"
	"github.com/robustfengbin/zwallet/orchard"
	"github.com/robustfengbin/zwallet/proving"
	"github.com/robustfengbin/zwallet/rpcclient"
	"github.com/robustfengbin/zwallet/scan"
	"github.com/robustfengbin/zwallet/transfer"
	"github.com/robustfengbin/zwallet/walletdb"
)

// syncInterval is the pause between sync passes once the tip is
// reached.
const syncInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "zwalletd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}
	defer logRotator.Close()
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	zwltLog.Infof("zwalletd starting on %s", cfg.params.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Persistence.
	var store walletdb.Store
	switch cfg.DBDriver {
	case "postgres":
		pgCfg := walletdb.DefaultPostgresConfig()
		pgCfg.Host = cfg.PGHost
		pgCfg.Port = cfg.PGPort
		pgCfg.User = cfg.PGUser
		pgCfg.Password = cfg.PGPass
		pgCfg.Database = cfg.PGName
		store, err = walletdb.OpenPostgresStore(ctx, pgCfg)
	default:
		store, err = walletdb.OpenLevelStore(cfg.DataDir)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	// Node RPC.
	endpoints := append([]string{cfg.RPCConnect}, cfg.RPCFallbacks...)
	client, err := rpcclient.New(rpcclient.Config{
		Endpoints: endpoints,
		User:      cfg.RPCUser,
		Password:  cfg.RPCPass,
		BatchSize: cfg.BatchSize,
	})
	if err != nil {
		return err
	}

	// Proving backend: the key cache is initialized once at startup.
	prover := proving.NewLocalProver()
	if err := prover.InitProvingKey(); err != nil {
		return err
	}
	pool := proving.NewPool(prover, cfg.ProverWorkers)

	// Core engine.
	mgr := scan.NewManager(scan.Config{
		Store:              store,
		Chain:              client,
		Params:             cfg.params,
		CheckpointInterval: cfg.CheckpointInterval,
	})
	service := transfer.NewService(cfg.params, mgr, pool)

	registry := chain.NewRegistry()
	zcash := chain.NewZcash(cfg.params, client, mgr, service, func(walletID int32) (*orchard.SpendingKey, error) {
		// Long-term key custody is an external collaborator; the
		// daemon itself only scans.
		return nil, fmt.Errorf("no signing backend configured for wallet %d", walletID)
	})
	if err := registry.Register(zcash); err != nil {
		return err
	}

	// Viewing keys arrive via the environment in the standalone
	// daemon; the API layer registers them at runtime otherwise.
	if encoded := os.Getenv("ZWALLET_VIEWING_KEY"); encoded != "" {
		vk, err := orchard.DecodeViewingKey(encoded)
		if err != nil {
			return fmt.Errorf("ZWALLET_VIEWING_KEY: %w", err)
		}
		mgr.RegisterWallet(1, vk)
	}

	if len(mgr.WalletIDs()) == 0 {
		zwltLog.Warn("No viewing keys registered; scanning is idle")
	}

	syncer := scan.NewSyncer(mgr, 0)
	for {
		if len(mgr.WalletIDs()) > 0 {
			progress, err := syncer.Sync(ctx)
			switch {
			case ctx.Err() != nil:
				// Cancellation is observed at block boundaries; the
				// last checkpoint is already durable.
				zwltLog.Info("Shutdown requested; resuming from last checkpoint")
				return nil
			case err != nil:
				zwltLog.Errorf("Sync pass failed: %v", err)
			default:
				zwltLog.Infof("Synced to %d/%d (%.2f%%), %d notes",
					progress.LastScannedHeight, progress.ChainTipHeight,
					progress.ProgressPercent, progress.NotesFound)
			}
		}

		select {
		case <-ctx.Done():
			zwltLog.Info("Shutdown requested")
			return nil
		case <-time.After(syncInterval):
		}
	}
}
