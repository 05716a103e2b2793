// ABOUTME: The init command: interactive wizard that writes a YAML config file
// ABOUTME: Prompts for Matrix credentials and storage, then validates what it wrote

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-phrasebot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(os.Stdin, os.Stdout, configPath())
	},
}

// initAnswers are the values gathered by the wizard.
type initAnswers struct {
	Homeserver   string
	Username     string
	Password     string
	RecoveryKey  string
	Prefix       string
	Driver       string
	RedisAddr    string
	AutoJoin     bool
	AllowedRooms []string
}

// renderConfig produces the YAML written by init.
func renderConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("# coven-phrasebot configuration\n")
	b.WriteString("# Generated by coven-phrasebot init\n\n")

	b.WriteString("matrix:\n")
	fmt.Fprintf(&b, "  homeserver: %q\n", a.Homeserver)
	fmt.Fprintf(&b, "  username: %q\n", a.Username)
	fmt.Fprintf(&b, "  password: %q\n", a.Password)
	if a.RecoveryKey != "" {
		fmt.Fprintf(&b, "  recovery_key: %q\n", a.RecoveryKey)
	}
	fmt.Fprintf(&b, "  auto_join: %t\n", a.AutoJoin)
	b.WriteString("  # Only answer in these rooms (empty = all joined rooms)\n")
	if len(a.AllowedRooms) == 0 {
		b.WriteString("  allowed_rooms: []\n")
	} else {
		b.WriteString("  allowed_rooms:\n")
		for _, room := range a.AllowedRooms {
			fmt.Fprintf(&b, "    - %q\n", room)
		}
	}

	b.WriteString("\nbot:\n")
	fmt.Fprintf(&b, "  command_prefix: %q\n", a.Prefix)
	b.WriteString("  send_timeout: \"30s\"\n")

	b.WriteString("\nstorage:\n")
	fmt.Fprintf(&b, "  driver: %q\n", a.Driver)
	if a.Driver == config.DriverRedis {
		b.WriteString("  redis:\n")
		fmt.Fprintf(&b, "    addr: %q\n", a.RedisAddr)
		b.WriteString("    key_prefix: \"phrasebot:\"\n")
	}

	b.WriteString("\nlogging:\n")
	b.WriteString("  level: \"info\"\n")
	b.WriteString("  format: \"text\"\n")

	b.WriteString("\nmetrics:\n")
	b.WriteString("  enabled: false\n")
	b.WriteString("  addr: \"127.0.0.1:9090\"\n")
	return b.String()
}

type prompter struct {
	reader *bufio.Reader
	out    io.Writer
	green  *color.Color
}

func (p *prompter) ask(question, fallback string) string {
	p.green.Fprint(p.out, "    ▶ ")
	if fallback != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, fallback)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	answer, _ := p.reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallback
	}
	return answer
}

func (p *prompter) confirm(question string, fallback bool) bool {
	def := "y/N"
	if fallback {
		def = "Y/n"
	}
	answer := strings.ToLower(p.ask(question+" ["+def+"]", ""))
	switch answer {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return fallback
}

func runInit(in io.Reader, out io.Writer, path string) error {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	p := &prompter{reader: bufio.NewReader(in), out: out, green: green}

	color.New(color.FgCyan).Fprint(out, banner)
	fmt.Fprintln(out, "    Interactive Setup")
	fmt.Fprintln(out, "    -----------------")
	fmt.Fprintln(out)

	if _, err := os.Stat(path); err == nil {
		yellow.Fprintf(out, "    Config already exists at %s\n", path)
		if !p.confirm("Overwrite?", false) {
			fmt.Fprintln(out, "    Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	a := initAnswers{
		Homeserver:  p.ask("Matrix homeserver URL", "https://matrix.org"),
		Username:    p.ask("Matrix username", ""),
		Password:    p.ask("Matrix password", ""),
		RecoveryKey: p.ask("Matrix recovery key (optional, for E2EE)", ""),
		Prefix:      p.ask("Command prefix", "/"),
		AutoJoin:    p.confirm("Join rooms when invited?", true),
	}
	if rooms := p.ask("Allowed rooms, comma separated (empty = all)", ""); rooms != "" {
		for _, room := range strings.Split(rooms, ",") {
			if room = strings.TrimSpace(room); room != "" {
				a.AllowedRooms = append(a.AllowedRooms, room)
			}
		}
	}
	a.Driver = p.ask("Storage driver (sqlite, redis, memory)", config.DriverSQLite)
	if a.Driver == config.DriverRedis {
		a.RedisAddr = p.ask("Redis address", "localhost:6379")
	}

	text := renderConfig(a)
	cfg, err := config.Parse(text, false)
	if err != nil {
		return err
	}
	if err := cfg.ValidateMatrix(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(out)
	green.Fprintf(out, "    ✓ Config written to %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    Next steps:")
	fmt.Fprintln(out, "    1. Invite the bot to a room")
	fmt.Fprintln(out, "    2. Run: coven-phrasebot run")
	fmt.Fprintln(out)
	return nil
}
