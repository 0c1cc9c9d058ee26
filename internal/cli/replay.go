package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/app"
	"github.com/dshills/taphold/internal/dispatcher"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/input/key"
	"github.com/dshills/taphold/internal/journal"
	"github.com/dshills/taphold/internal/source"
)

type replayOptions struct {
	seq     string
	session string
	step    time.Duration
	hidOut  string
	json    bool
}

// replayRecord is the JSON form of one resolved action.
type replayRecord struct {
	TimeMs   int64  `json:"time_ms"`
	Pos      string `json:"pos"`
	Action   string `json:"action"`
	Pressed  bool   `json:"pressed"`
	TapCount uint8  `json:"tap_count"`
}

func newReplayCommand(e *env) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Show how a key sequence resolves",
		Long: `Run a recorded key sequence through the resolver on a simulated clock
and print every resolved action.

The sequence comes from a file (plain "+r1c3@0 -r1c3@150" tokens, or
YAML with an events list), from --seq, or from a journal session.

Examples:
  taphold replay roll.txt
  taphold replay --seq "+r1c3@0 +r1c4@40 -r1c3@90 -r1c4@120"
  taphold replay --session 3f2a --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.replay(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.seq, "seq", "", "sequence in token notation")
	f.StringVar(&opts.session, "session", "", "replay a journal session (id or prefix)")
	f.DurationVar(&opts.step, "step", app.DefaultStep, "tick interval between events")
	f.StringVar(&opts.hidOut, "hid-out", "", "also write HID reports to this file")
	f.BoolVar(&opts.json, "json", false, "output as JSON")
	f.String("keymap", "", "keymap file (.yaml or .json)")
	f.Duration("base-term", 0, "tapping term of keys without an entry")
	f.String("journal-path", "", "journal database")
	return cmd
}

func (e *env) replay(cmd *cobra.Command, args []string, opts replayOptions) error {
	seq, err := e.replaySequence(args, opts)
	if err != nil {
		return err
	}

	if err := e.cfg.Validate(); err != nil {
		return err
	}
	km, err := e.cfg.Keymap().Load()
	if err != nil {
		return err
	}
	table, err := e.cfg.Timing().Table(km)
	if err != nil {
		return err
	}

	ropts := app.ReplayOptions{Step: opts.step, Logger: e.log}
	if opts.hidOut != "" {
		f, err := os.Create(opts.hidOut)
		if err != nil {
			return fmt.Errorf("create hid output: %w", err)
		}
		defer f.Close()
		r := hid.NewReporter(f, e.cfg.Mousekey(), e.log)
		ropts.Sinks = append(ropts.Sinks, r)
		ropts.OnTick = r.Tick
	}

	res, err := app.Replay(km, table, seq, ropts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeReplayJSON(out, res.Resolved)
	}
	return e.writeReplayTable(out, seq, res)
}

func (e *env) replaySequence(args []string, opts replayOptions) (*key.Sequence, error) {
	given := 0
	for _, set := range []bool{len(args) == 1, opts.seq != "", opts.session != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		return nil, errors.New("give exactly one of a file, --seq or --session")
	}

	switch {
	case opts.seq != "":
		return key.ParseSequence(opts.seq)
	case opts.session != "":
		j, err := journal.Open(e.cfg.Journal().Path, e.log)
		if err != nil {
			return nil, err
		}
		defer j.Close()
		id, err := j.Resolve(opts.session)
		if err != nil {
			return nil, err
		}
		return j.Events(id)
	default:
		return source.LoadScript(args[0])
	}
}

func writeReplayJSON(w io.Writer, rs []dispatcher.Resolved) error {
	records := make([]replayRecord, len(rs))
	for i, r := range rs {
		records[i] = replayRecord{
			TimeMs:   r.Time.Milliseconds(),
			Pos:      r.Pos.String(),
			Action:   r.Action.String(),
			Pressed:  r.Pressed,
			TapCount: r.TapCount,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func (e *env) writeReplayTable(w io.Writer, seq *key.Sequence, res *app.ReplayResult) error {
	t := e.theme
	rows := make([][]string, 0, len(res.Resolved))
	for _, r := range res.Resolved {
		edge := "up"
		if r.Pressed {
			edge = "down"
		}
		kind := t.Subtle.Render(fmt.Sprintf("tap %d", r.TapCount))
		if r.IsHold() {
			kind = t.Highlight.Render("hold")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%dms", r.Time.Milliseconds()),
			r.Pos.String(),
			r.Action.String(),
			edge,
			kind,
		})
	}

	var b strings.Builder
	b.WriteString(t.Title.Render(fmt.Sprintf("%d events, %d actions", seq.Len(), len(res.Resolved))))
	b.WriteString("\n\n")
	if len(rows) > 0 {
		b.WriteString(t.Table([]string{"TIME", "POS", "ACTION", "EDGE", "KIND"}, rows))
		b.WriteByte('\n')
	}
	m := res.Metrics
	b.WriteString(t.KeyValue([][2]string{
		{"taps", fmt.Sprint(m.Taps)},
		{"holds", fmt.Sprintf("%d (timeout %d, interrupt %d, late %d)", m.Holds(), m.HoldsTimeout, m.HoldsInterrupt, m.HoldsLate)},
		{"repeats", fmt.Sprint(m.Repeats)},
		{"ended at", fmt.Sprintf("%dms", res.End.Milliseconds())},
	}))
	if !res.Armed.IsEmpty() {
		b.WriteString(t.WarningStyle.Render("oneshot still armed: " + res.Armed.String()))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
