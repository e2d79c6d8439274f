// Package cli implements the xview command line.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-xview/internal/config"
	"github.com/goliatone/go-xview/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogMode    string
	AppRoot    string

	prompter   Prompter
	isTerminal func() bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xview",
		Short: "xview renders template views",
		Long: `xview renders views written as template programs. A program can
name another program as its output type, which then receives the
output as its input document.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogLevel != "" {
				if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
					return fmt.Errorf("invalid --log-level %q", opts.LogLevel)
				}
			}
			if _, err := logging.ParseMode(opts.LogMode); err != nil {
				return fmt.Errorf("invalid --log-mode %q", opts.LogMode)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogMode, "log-mode", "", "log mode (production|development)")
	cmd.PersistentFlags().StringVar(&opts.AppRoot, "root", "", "application root; overrides the config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewPluginsCommand(opts))

	return cmd
}

// load reads the config and applies flag overrides, then builds the logger.
func (o *RootOptions) load(stderr io.Writer) (*config.Config, logr.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, logr.Discard(), err
	}
	if o.AppRoot != "" {
		cfg.Views.AppRoot = o.AppRoot
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogMode != "" {
		cfg.Logging.Mode = o.LogMode
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, logr.Discard(), err
	}
	mode, err := logging.ParseMode(cfg.Logging.Mode)
	if err != nil {
		return nil, logr.Discard(), err
	}
	logger := logging.NewLogger(
		logging.SetLevel(level),
		logging.SetMode(mode),
		logging.WriteTo(stderr),
	)
	return cfg, logger.WithName("xview"), nil
}

// splitView splits "controller/name" into its parts. Names without a
// controller use fallback.
func splitView(view, fallback string) (controller, name string) {
	view = strings.Trim(strings.TrimSpace(view), "/")
	if idx := strings.LastIndex(view, "/"); idx >= 0 && !strings.HasPrefix(view, "~") {
		return view[:idx], view[idx+1:]
	}
	return fallback, view
}
