package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/app"
	"github.com/dshills/taphold/internal/logging"
)

func newRunCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve key events from a device into HID reports",
		Long: `Read key events from an input device (or a script), resolve tap/hold
decisions and write HID reports to a gadget device.

Examples:
  taphold run --device /dev/input/event3 --hid /dev/hidg0
  taphold run --script roll.yaml --status
  taphold run --journal --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.run(cmd)
		},
	}

	f := cmd.Flags()
	f.String("device", "", "evdev input device")
	f.Bool("grab", true, "grab the input device exclusively")
	f.String("script", "", "play a sequence file instead of reading a device")
	f.String("hid", "", "HID gadget device to write reports to")
	f.String("keymap", "", "keymap file (.yaml or .json)")
	f.Duration("base-term", 0, "tapping term of keys without an entry")
	f.Duration("scan", 0, "event loop scan interval")
	f.Bool("journal", false, "record the session")
	f.String("journal-path", "", "journal database")
	f.Bool("status", false, "show the status view")
	return cmd
}

func (e *env) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithContext(ctx, e.log)

	a, err := app.New(e.cfg, app.Options{Logger: e.log})
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	if err := a.Run(ctx); err != nil {
		return err
	}

	m := a.Dispatcher().Metrics().Snapshot()
	loop := a.Metrics().Snapshot()
	pairs := [][2]string{
		{"ran for", time.Since(start).Round(time.Millisecond).String()},
		{"events", fmt.Sprint(m.EventsTotal)},
		{"taps", fmt.Sprint(m.Taps)},
		{"holds", fmt.Sprintf("%d (timeout %d, interrupt %d, late %d)", m.Holds(), m.HoldsTimeout, m.HoldsInterrupt, m.HoldsLate)},
		{"repeats", fmt.Sprint(m.Repeats)},
		{"oneshots", fmt.Sprint(m.OneshotConsumptions)},
		{"overruns", fmt.Sprintf("%d (%.2f%%)", loop.Overruns, loop.OverrunRate())},
		{"max lag", loop.MaxLag.String()},
	}
	if s := a.Session(); s != nil {
		pairs = append(pairs, [2]string{"session", s.ID().String()})
	}
	if hs := a.Reporter().Stats(); hs.Failures > 0 {
		pairs = append(pairs, [2]string{"hid failures", e.theme.ErrorStyle.Render(fmt.Sprint(hs.Failures))})
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), e.theme.KeyValue(pairs))
	logging.FromContext(ctx).Debug().Msg("run finished")
	return err
}
