// ABOUTME: The console command: runs the bot against the terminal
// ABOUTME: Uses the configured store when a config file exists, memory otherwise

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/coven-phrasebot/internal/config"
	"github.com/2389/coven-phrasebot/internal/console"
	"github.com/2389/coven-phrasebot/internal/controller"
)

var consoleMemory bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Try the bot commands in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runConsole(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleMemory, "memory", false, "keep state in memory only")
}

// loadConsoleConfig reads the config file if there is one.
func loadConsoleConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		cfg.Storage.Driver = config.DriverMemory
		return cfg, nil
	}
	return cfg, err
}

func runConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := loadConsoleConfig(configPath())
	if err != nil {
		return err
	}
	if consoleMemory {
		cfg.Storage.Driver = config.DriverMemory
	}

	logger := setupLogger(os.Stderr, cfg.Logging)

	st, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	printBanner()
	fmt.Fprintf(out, "Type %shelp for commands, %squit to leave.\n\n", cfg.Bot.CommandPrefix, cfg.Bot.CommandPrefix)

	con := console.New(in, out, cfg.Bot.CommandPrefix, logger)
	ctrl := controller.New(st, con, logger)
	defer ctrl.Close()

	return con.Run(ctx, ctrl)
}
