package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/input/keymap"
	"github.com/dshills/taphold/internal/source"
)

func newCheckCommand(e *env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the timing policy",
		Long: `Load the configuration and keymap, build the timing policy table and
print the effective policy of every configured key.

Exits non-zero when anything is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.check(cmd.OutOrStdout(), all)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "list every key, not only configured ones")
	f.String("keymap", "", "keymap file (.yaml or .json)")
	f.Duration("base-term", 0, "tapping term of keys without an entry")
	return cmd
}

func (e *env) check(w io.Writer, all bool) error {
	t := e.theme
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
	if sc := e.cfg.Source(); sc.Map != nil {
		codes, err := source.ParseCodeMap(sc.Map)
		if err != nil {
			return err
		}
		if err := source.ValidateCodeMap(codes); err != nil {
			return err
		}
	}

	var b strings.Builder
	b.WriteString(t.KeyValue([][2]string{
		{"sources", strings.Join(e.cfg.Sources(), " < ")},
		{"keymap", fmt.Sprintf("%s (%d keys, layers %s)", km.Name, len(km.Positions), strings.Join(km.LayerNames(), ", "))},
		{"default", table.Default().String()},
		{"scan", e.cfg.Scan().Interval.String()},
	}))
	b.WriteByte('\n')

	positions := table.Positions()
	if all {
		positions = km.Positions
	}
	base := keymap.LayerMask(0).Activate(0)
	rows := make([][]string, 0, len(positions))
	for _, pos := range positions {
		p := table.Lookup(pos)
		term := p.TappingTerm.String()
		if table.Overridden(pos) {
			term = t.Highlight.Render(term)
		}
		rows = append(rows, []string{
			pos.String(),
			km.Lookup(base, pos).String(),
			term,
			yesNo(p.ForceHold),
			yesNo(p.IgnoreInterrupt),
		})
	}
	b.WriteString(t.Table([]string{"KEY", "BINDING", "TERM", "FORCE_HOLD", "IGNORE_INTERRUPT"}, rows))
	b.WriteByte('\n')
	b.WriteString(t.SuccessStyle.Render("configuration ok"))
	b.WriteByte('\n')

	_, err = io.WriteString(w, b.String())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
