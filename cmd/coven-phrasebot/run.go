// ABOUTME: The run command: connects to Matrix and serves every joined room
// ABOUTME: Supervises the sync loop and metrics server until SIGINT or SIGTERM

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-phrasebot/internal/config"
	"github.com/2389/coven-phrasebot/internal/controller"
	"github.com/2389/coven-phrasebot/internal/matrix"
	"github.com/2389/coven-phrasebot/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Matrix and answer commands in joined rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(parent context.Context) error {
	printBanner()

	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.ValidateMatrix(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := setupLogger(os.Stdout, cfg.Logging)

	printInfo("Config", path)
	printInfo("Homeserver", cfg.Matrix.Homeserver)
	printInfo("Username", cfg.Matrix.Username)
	printInfo("Storage", cfg.Storage.Driver)
	if cfg.Matrix.RecoveryKey != "" {
		printInfo("Encryption", "enabled")
	}
	if cfg.Metrics.Enabled {
		printInfo("Metrics", cfg.Metrics.Addr+cfg.Metrics.Path)
	}
	fmt.Println()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	bridge, err := matrix.NewBridge(matrix.Options{
		Matrix:        cfg.Matrix,
		CommandPrefix: cfg.Bot.CommandPrefix,
		SendTimeout:   cfg.Bot.SendTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Login(ctx); err != nil {
		return err
	}

	if cfg.Matrix.RecoveryKey != "" {
		crypto, err := matrix.EnableCrypto(ctx, bridge.Client(), cfg.Matrix.RecoveryKey, config.DataDir(), logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		defer crypto.Close()
	} else {
		logger.Info("encryption disabled (no recovery key)")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	ctrl := controller.New(st, bridge, logger, controller.WithMetrics(m))
	defer ctrl.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Run(gctx, ctrl)
	})
	if m != nil {
		srv := newMetricsServer(cfg.Metrics, m)
		g.Go(func() error {
			return serveMetrics(gctx, srv, logger)
		})
	}

	err = g.Wait()
	logger.Info("stopping delivery jobs")
	return err
}
