// Package cli provides the cobra commands of the taphold binary.
package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/logging"
)

// BuildInfo is set from main at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// flagPaths maps command flags onto configuration paths. A flag only
// overrides the configuration when it was given.
var flagPaths = map[string]string{
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"keymap":       "keymap.file",
	"base-term":    "timing.base_term",
	"device":       "source.device",
	"grab":         "source.grab",
	"script":       "source.script",
	"hid":          "hid.device",
	"journal":      "journal.enabled",
	"journal-path": "journal.path",
	"status":       "status.enabled",
	"scan":         "scan.interval",
}

// env is the state shared by every command after PersistentPreRunE.
type env struct {
	build      BuildInfo
	configPath string

	cfg   *config.Config
	log   zerolog.Logger
	theme *Theme
}

// NewRootCommand builds the command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	e := &env{build: build, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "taphold",
		Short: "Tap-hold resolution for a split keyboard",
		Long: `taphold turns raw key presses into the actions of a Kyria-style keymap.

Dual-role keys produce one action when tapped and another when held.
Each key has its own tapping term, may ignore interrupts, and may
auto-repeat on a rapid re-press. Oneshot modifiers apply to the next key.

Use 'taphold run' to drive a HID gadget from an input device, or
'taphold replay' to see how a recorded sequence resolves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}
			return e.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "configuration file (.toml or .lua)")
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (auto, console, json)")

	root.AddCommand(
		newRunCommand(e),
		newReplayCommand(e),
		newCheckCommand(e),
		newWatchCommand(e),
		newStatsCommand(e),
		newVersionCommand(e),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(build BuildInfo, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(build)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (e *env) init(cmd *cobra.Command) error {
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(e.configPath, config.WithOverrides(overrides))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	lc := cfg.Logging()
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	e.log = logging.New(logging.Config{
		Level:      level,
		Format:     lc.Format,
		TimeFormat: lc.TimeFormat,
	}, cmd.ErrOrStderr())
	e.theme = NewTheme()
	return nil
}

func flagOverrides(cmd *cobra.Command) (map[string]any, error) {
	out := make(map[string]any)
	for name, path := range flagPaths {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		v := f.Value.String()
		if f.Value.Type() == "bool" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", name, err)
			}
			out[path] = b
			continue
		}
		out[path] = v
	}
	if _, ok := out["source.script"]; ok {
		out["source.kind"] = "script"
	}
	return out, nil
}
