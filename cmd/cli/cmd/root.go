// Package cmd implements the artistcompare terminal commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/artistcompare/internal/config"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

// state is shared by the subcommands once the root has loaded configuration.
type state struct {
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	s := &state{}
	root := &cobra.Command{
		Use:           "artistcompare",
		Short:         "Compares two artists on Spotify",
		Long:          `Looks up two artists, fetches their top tracks with audio features and compares the averages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd, errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&s.cfgFile, "config", "", "config file (default searches ./.artistcompare.* and $HOME/.artistcompare.*)")
	pf.String("storage", "sqlite", "history storage driver (sqlite|none)")
	pf.String("db", "artistcompare.db", "path to the SQLite history database")
	pf.String("market", "US", "market used for top tracks")
	pf.String("resolver", "first", "artist resolution strategy (first|similarity)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", "console", "log format (console|json|auto)")

	root.AddCommand(newCompareCmd(s), newHistoryCmd(s))
	return root
}

func (s *state) load(cmd *cobra.Command, errOut io.Writer) error {
	v := config.New()
	// quieter than the server unless asked
	v.SetDefault("log.level", "warn")
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, s.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: errOut})
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = logger
	return nil
}
