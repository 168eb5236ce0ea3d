package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/batonset/internal/conflict"
	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/fixture"
	"github.com/roach88/batonset/internal/setsystem"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the contest database",
		Long: `Create the SQLite database named by --db, or bring an existing one up to
the current schema version.

Example:
  batonset init --db ./spring.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.out.Success(map[string]string{"database": rootOpts.Database},
				fmt.Sprintf("✓ Database ready: %s", rootOpts.Database))
		},
	}
}

// ImportSummary is the JSON payload of the import command.
type ImportSummary struct {
	ContestID    int64 `json:"contest_id"`
	Participants int   `json:"participants"`
	Judges       int   `json:"judges"`
	Events       int   `json:"events"`
	Scores       int   `json:"scores"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <contest.yaml>",
		Short: "Import a contest fixture",
		Long: `Import a contest described in YAML: coaches, participants, judges, lane
assignments, events, registrations and optionally scores.

Example:
  batonset import --db ./spring.db ./spring.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.Load(args[0])
			if err != nil {
				return newFormatter(rootOpts, cmd).Fail("failed to load contest file", err)
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := fixture.Import(cmd.Context(), s.store, f, s.rules.Weights)
			if err != nil {
				return s.out.Fail("import failed", err)
			}
			s.logger.Info("contest imported", zap.Int64("contest", ids.ContestID), zap.String("file", args[0]))

			sum := ImportSummary{
				ContestID:    ids.ContestID,
				Participants: len(ids.Participants),
				Judges:       len(ids.Judges),
				Events:       len(ids.Events),
				Scores:       len(f.Scores),
			}
			return s.out.Success(sum, fmt.Sprintf(
				"✓ Imported contest %d (%d participants, %d judges, %d events, %d scores)",
				sum.ContestID, sum.Participants, sum.Judges, sum.Events, sum.Scores))
		},
	}
}

// scheduleView is the JSON payload of the schedule command.
type scheduleView struct {
	ContestID    int64           `json:"contest_id"`
	GenerationID string          `json:"generation_id"`
	Revision     int64           `json:"revision"`
	Plan         *setsystem.Plan `json:"plan"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <contest-id>",
		Short: "Generate and store a contest's running order",
		Long: `Group registrations into divisions, assign divisions to lanes, build the
running order and store it, replacing the previous one.

Exit codes:
  0 - Running order stored, no critical conflicts
  1 - Stored with unresolved critical conflicts, or contest data invalid
  2 - Command error

Example:
  batonset schedule --db ./spring.db --rules ./rules.cue 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := parseID(args[0], "contest")
			if err != nil {
				return err
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.runner.ScheduleContest(cmd.Context(), contestID)
			if err != nil {
				return s.out.Fail("scheduling failed", err)
			}

			view := scheduleView{ContestID: res.ContestID, GenerationID: res.GenerationID,
				Revision: res.Revision, Plan: res.Plan}
			var b strings.Builder
			fmt.Fprintf(&b, "Running order %s (revision %d)\n", res.GenerationID, res.Revision)
			b.WriteString(setsystem.Render(res.Plan.Positions, res.Plan.Lanes))
			writeConflicts(&b, res.Plan.Conflicts)
			if !res.Plan.Balance.Within {
				fmt.Fprintf(&b, "\nLane times out of balance: spread %s, mean %s\n",
					res.Plan.Balance.Spread(), res.Plan.Balance.Mean)
			}
			if res.Plan.LunchSkipped {
				b.WriteString("\nLunch break skipped: no division boundary after the lunch threshold\n")
			}
			if err := s.out.Success(view, strings.TrimRight(b.String(), "\n")); err != nil {
				return err
			}

			if uerr := res.Unresolved(); uerr != nil {
				return WrapExitError(ExitFailure, "critical conflicts remain", uerr)
			}
			return nil
		},
	}
}

func writeConflicts(b *strings.Builder, cs []conflict.Conflict) {
	if len(cs) == 0 {
		b.WriteString("\nNo conflicts.\n")
		return
	}
	fmt.Fprintf(b, "\nConflicts (%d):\n", len(cs))
	for _, c := range cs {
		fmt.Fprintf(b, "  %s %s: %s\n", c.Severity, c.Type, c.Message)
		if c.Suggestion != "" {
			fmt.Fprintf(b, "    suggestion: %s\n", c.Suggestion)
		}
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contest-id>",
		Short: "Print a contest's stored running order",
		Long: `Print the running order last stored by schedule, and whether contest data
has changed since it was generated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := parseID(args[0], "contest")
			if err != nil {
				return err
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			sched, err := s.store.ReadSetSystem(ctx, contestID)
			if err != nil {
				return s.out.Fail("failed to read running order", err)
			}
			c, err := s.store.GetContest(ctx, contestID)
			if err != nil {
				return s.out.Fail("failed to read contest", err)
			}
			if len(sched.Positions) == 0 {
				return s.out.Success(sched, fmt.Sprintf("Contest %d has no running order yet.", contestID))
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Running order %s (revision %d)", sched.GenerationID, sched.Revision)
			if stale(sched, c) {
				fmt.Fprintf(&b, ", stale: contest is at revision %d", c.Revision)
			}
			b.WriteString("\n")
			b.WriteString(setsystem.Render(sched.Positions, nil))
			return s.out.Success(sched, strings.TrimRight(b.String(), "\n"))
		},
	}
}

func stale(sched *contest.Schedule, c contest.Contest) bool {
	return sched.Revision != c.Revision
}
