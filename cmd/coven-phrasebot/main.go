// ABOUTME: Entry point for coven-phrasebot
// ABOUTME: Cobra root command with run, console and init subcommands

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-phrasebot/internal/config"
)

const banner = `
                                         _                           _           _
  ___ _____   _____ _ __        _ __ | |__  _ __ __ _ ___  ___| |__   ___ | |_
 / __/ _ \ \ / / _ \ '_ \ _____| '_ \| '_ \| '__/ _' / __|/ _ \ '_ \ / _ \| __|
| (_| (_) \ V /  __/ | | |_____| |_) | | | | | | (_| \__ \  __/ |_) | (_) | |_
 \___\___/ \_/ \___|_| |_|     | .__/|_| |_|_|  \__,_|___/\___|_.__/ \___/ \__|
                               |_|
`

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "coven-phrasebot",
	Short: "Matrix bot that sends phrases from per-room dictionaries",
	Long: `coven-phrasebot keeps named phrase dictionaries for every room it is in
and, on /spam, posts their phrases one by one at a configurable interval
until /stop.

Run "coven-phrasebot init" to write a config file, then "coven-phrasebot run".
"coven-phrasebot console" runs the same commands in the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"config file (default $COVEN_PHRASEBOT_CONFIG or ~/.config/coven/phrasebot.yaml)")

	rootCmd.AddCommand(runCmd, consoleCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath resolves the config file: --config flag first, then config.ConfigPath.
func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.ConfigPath()
}

func printBanner() {
	color.New(color.FgCyan).Print(banner)
}

func printInfo(label, value string) {
	color.New(color.FgGreen).Print("    ▶ ")
	fmt.Printf("%-11s %s\n", label+":", value)
}
