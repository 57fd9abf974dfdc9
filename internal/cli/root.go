// Package cli contains the cobra commands of the clientes terminal client.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"cliente_backend/internal/cli/config"
	"cliente_backend/internal/cli/output"
	"cliente_backend/internal/client"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfgFile string
	server  string
	noColor bool
	verbose bool

	cfg     *config.Config
	printer *output.Printer
	api     *client.Client
	in      *bufio.Reader
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "clientes",
		Short: "Manage your clientes from the terminal",
		Long: `clientes is the terminal client of the cliente registry API.

Example usage:
  clientes register --email ana@x.com     # Create an account and sign in
  clientes login --email ana@x.com        # Sign in
  clientes list                           # Show your clientes, newest first
  clientes create --nome Ana --email ana@x.com --telefone 555 --endereco "Rua A"
  clientes update <id> --telefone 999     # Change only the given fields
  clientes delete <id>                    # Asks for confirmation
  clientes watch                          # Follow changes live`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.clientes.yaml)")
	root.PersistentFlags().StringVar(&a.server, "server", "", "API base URL (overrides the config file)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newListCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if a.verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.SetServer(a.server)
	a.cfg = cfg

	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(a.noColor))
	a.in = bufio.NewReader(cmd.InOrStdin())

	a.api = client.New(cfg.Server(), cfg.Timeout(), cfg.Session())
	a.api.OnSession = func(s *client.Session) {
		if err := cfg.SaveSession(s); err != nil {
			a.printer.Warning("could not save session: %v", err)
		}
	}

	slog.Debug("configuration loaded", "config", cfg.Path(), "server", cfg.Server())
	return nil
}

// prompt reads one line after printing label. EOF with no input yields "".
func (a *app) prompt(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but y/yes is a no.
func (a *app) confirm(w io.Writer, question string) bool {
	answer, err := a.prompt(w, question+" [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
