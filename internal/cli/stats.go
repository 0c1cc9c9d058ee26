package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/taphold/internal/journal"
)

func newStatsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [session]",
		Short: "List journal sessions or show per-key statistics",
		Long: `Without an argument, list the recorded sessions. With a session id or
unique prefix, show per-key tap and hold counts and how long keys were
held, for tuning tapping terms.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(e.cfg.Journal().Path, e.log)
			if err != nil {
				return err
			}
			defer j.Close()

			if len(args) == 0 {
				return e.listSessions(cmd.OutOrStdout(), j)
			}
			return e.keyStats(cmd.OutOrStdout(), j, args[0])
		},
	}
	cmd.Flags().String("journal-path", "", "journal database")
	return cmd
}

func (e *env) listSessions(w io.Writer, j *journal.Journal) error {
	sessions, err := j.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No recorded sessions.")
		return err
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		dur := e.theme.Highlight.Render("open")
		if !s.Ended.IsZero() {
			dur = s.Ended.Sub(s.Started).Round(time.Second).String()
		}
		rows = append(rows, []string{
			s.ID.String(),
			s.Keymap,
			s.Started.Format("2006-01-02 15:04"),
			dur,
			fmt.Sprint(s.Events),
			fmt.Sprint(s.Actions),
		})
	}
	_, err = io.WriteString(w, e.theme.Table(
		[]string{"SESSION", "KEYMAP", "STARTED", "DURATION", "EVENTS", "ACTIONS"}, rows))
	return err
}

func (e *env) keyStats(w io.Writer, j *journal.Journal, prefix string) error {
	id, err := j.Resolve(prefix)
	if err != nil {
		return err
	}
	stats, err := j.Stats(id)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Pos.String(),
			fmt.Sprint(s.Presses),
			fmt.Sprint(s.Taps),
			fmt.Sprint(s.Holds),
			fmt.Sprint(s.MultiTap),
			ms(s.MeanDown),
			ms(s.MaxDown),
		})
	}

	var b strings.Builder
	b.WriteString(e.theme.Title.Render("session " + id.String()))
	b.WriteString("\n\n")
	b.WriteString(e.theme.Table(
		[]string{"KEY", "PRESSES", "TAPS", "HOLDS", "MULTI", "MEAN DOWN", "MAX DOWN"}, rows))
	_, err = io.WriteString(w, b.String())
	return err
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
