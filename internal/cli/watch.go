package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/config/watcher"
)

// ErrNoConfigFile is returned by watch when no configuration file is in use.
var ErrNoConfigFile = errors.New("no configuration file to watch")

func newWatchCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-check the configuration whenever it changes",
		Long: `Watch the configuration file and validate it again after every change.

Settings are read once when 'taphold run' starts; a running instance
must be restarted to pick up a change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := e.cfg.Path()
			if path == "" {
				return ErrNoConfigFile
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, e.theme.Subtle.Render("watching "+path))
			return config.Watch(ctx, path, func(ev watcher.Event) {
				e.recheck(cmd, ev)
			})
		},
	}
}

func (e *env) recheck(cmd *cobra.Command, ev watcher.Event) {
	t := e.theme
	out := cmd.OutOrStdout()
	stamp := ev.Time.Format("15:04:05")

	if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
		fmt.Fprintf(out, "%s %s\n", stamp, t.WarningStyle.Render(ev.Op.String()+" "+ev.Path))
		return
	}

	if err := validateFile(ev.Path); err != nil {
		e.log.Error().Err(err).Str("path", ev.Path).Msg("invalid configuration")
		fmt.Fprintf(out, "%s %s\n", stamp, t.ErrorStyle.Render("invalid: "+err.Error()))
		return
	}
	fmt.Fprintf(out, "%s %s\n", stamp, t.SuccessStyle.Render("ok; restart taphold run to apply"))
}

// validateFile loads path as a fresh configuration and builds its table.
func validateFile(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	km, err := cfg.Keymap().Load()
	if err != nil {
		return err
	}
	_, err = cfg.Timing().Table(km)
	return err
}
