package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/batonset/internal/contest"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	*RootOptions
	EventID       int64
	ParticipantID int64
	JudgeID       int64
	Raw           string
	Penalties     contest.PenaltyCounts
	Flagged       bool
	Notes         string
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Record one judge's score of one participant",
		Long: `Record or replace a judge's score. Penalties are weighted with the
ruleset; once every judge has scored every registrant the event is
tabulated again.

Example:
  batonset score --db ./spring.db --event 1 --participant 2 --judge 2 --raw 9.2 --drops 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.EventID, "event", 0, "event id (required)")
	f.Int64Var(&opts.ParticipantID, "participant", 0, "participant id (required)")
	f.Int64Var(&opts.JudgeID, "judge", 0, "judge id (required)")
	f.StringVar(&opts.Raw, "raw", "", "raw score, e.g. 9.2 (required)")
	f.IntVar(&opts.Penalties.Drops, "drops", 0, "drops")
	f.IntVar(&opts.Penalties.TwoHand, "two-hand", 0, "two-hand catches")
	f.IntVar(&opts.Penalties.Falls, "falls", 0, "falls")
	f.IntVar(&opts.Penalties.Breaks, "breaks", 0, "breaks")
	f.IntVar(&opts.Penalties.TimeSeconds, "time", 0, "seconds outside the allowed routine time")
	f.IntVar(&opts.Penalties.NoSalute, "no-salute", 0, "missing salutes")
	f.IntVar(&opts.Penalties.ImproperSalute, "improper-salute", 0, "improper salutes")
	f.BoolVar(&opts.Flagged, "flag", false, "flag the score for review")
	f.StringVar(&opts.Notes, "notes", "", "judge's notes")
	for _, name := range []string{"event", "participant", "judge", "raw"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// ScoreSummary is the JSON payload of the score command.
type ScoreSummary struct {
	ScoreID    int64            `json:"score_id"`
	Tabulated  bool             `json:"tabulated"`
	Superseded bool             `json:"superseded,omitempty"`
	Results    []contest.Result `json:"results,omitempty"`
}

func runScore(opts *ScoreOptions, cmd *cobra.Command) error {
	raw, err := contest.ParsePoints(opts.Raw)
	if err != nil {
		return newFormatter(opts.RootOptions, cmd).Fail("invalid raw score", err)
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.runner.RecordScore(cmd.Context(), contest.Score{
		EventID:       opts.EventID,
		ParticipantID: opts.ParticipantID,
		JudgeID:       opts.JudgeID,
		Raw:           raw,
		Penalties:     opts.Penalties,
		Flagged:       opts.Flagged,
		Notes:         opts.Notes,
	})
	if err != nil {
		return s.out.Fail("failed to record score", err)
	}

	sum := ScoreSummary{ScoreID: rec.ScoreID, Superseded: rec.Superseded}
	text := fmt.Sprintf("✓ Score %d recorded; event %d awaits remaining scores", rec.ScoreID, opts.EventID)
	switch {
	case rec.Superseded:
		text = fmt.Sprintf("✓ Score %d recorded; a later score re-tabulates event %d", rec.ScoreID, opts.EventID)
	case rec.Tabulation != nil:
		sum.Tabulated, sum.Results = true, rec.Tabulation.Results
		names, err := s.participantNames(cmd)
		if err != nil {
			return s.out.Fail("failed to read participants", err)
		}
		text = fmt.Sprintf("✓ Score %d recorded; event %d tabulated\n%s",
			rec.ScoreID, opts.EventID, formatResults(rec.Tabulation.Results, names))
	}
	return s.out.Success(sum, strings.TrimRight(text, "\n"))
}

// EventSummary is one event's line in the tabulate command's JSON payload.
type EventSummary struct {
	EventID      int64            `json:"event_id"`
	GenerationID string           `json:"generation_id,omitempty"`
	Incomplete   string           `json:"incomplete,omitempty"`
	Results      []contest.Result `json:"results,omitempty"`
}

// NewTabulateCommand creates the tabulate command.
func NewTabulateCommand(rootOpts *RootOptions) *cobra.Command {
	var contestID int64

	cmd := &cobra.Command{
		Use:   "tabulate [event-id]",
		Short: "Tabulate one event, or every event of a contest",
		Long: `Rank each judge's scores, sum placement points and store final
placements, qualification and advancement.

With --contest every event is tabulated concurrently; events that are not
fully scored are reported and skipped.

Examples:
  batonset tabulate --db ./spring.db 3
  batonset tabulate --db ./spring.db --contest 1`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (contestID != 0) {
				return NewExitError(ExitCommandError, "give either an event id or --contest")
			}
			var eventID int64
			if len(args) == 1 {
				var err error
				if eventID, err = parseID(args[0], "event"); err != nil {
					return err
				}
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.participantNames(cmd)
			if err != nil {
				return s.out.Fail("failed to read participants", err)
			}

			if contestID != 0 {
				return tabulateContest(s, cmd, contestID, names)
			}
			res, err := s.runner.TabulateEvent(cmd.Context(), eventID)
			if err != nil {
				return s.out.Fail("tabulation failed", err)
			}
			sum := EventSummary{EventID: eventID, GenerationID: res.GenerationID, Results: res.Results}
			return s.out.Success(sum, strings.TrimRight(fmt.Sprintf("✓ Event %d tabulated (%s)\n%s",
				eventID, res.GenerationID, formatResults(res.Results, names)), "\n"))
		},
	}

	cmd.Flags().Int64Var(&contestID, "contest", 0, "tabulate every event of this contest")
	return cmd
}

func tabulateContest(s *session, cmd *cobra.Command, contestID int64, names map[int64]string) error {
	outcomes, err := s.runner.TabulateContest(cmd.Context(), contestID)
	if err != nil {
		return s.out.Fail("tabulation failed", err)
	}

	sums := make([]EventSummary, 0, len(outcomes))
	var b strings.Builder
	for _, o := range outcomes {
		if o.Incomplete != nil {
			sums = append(sums, EventSummary{EventID: o.EventID, Incomplete: o.Incomplete.Error()})
			fmt.Fprintf(&b, "- Event %d not tabulated: %v\n", o.EventID, o.Incomplete)
			continue
		}
		sums = append(sums, EventSummary{EventID: o.EventID, GenerationID: o.Result.GenerationID, Results: o.Result.Results})
		fmt.Fprintf(&b, "✓ Event %d tabulated (%s)\n%s", o.EventID, o.Result.GenerationID,
			formatResults(o.Result.Results, names))
	}
	if len(outcomes) == 0 {
		b.WriteString("Contest has no events.")
	}
	return s.out.Success(sums, strings.TrimRight(b.String(), "\n"))
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "results <event-id>",
		Short:         "Print an event's stored results",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0], "event")
			if err != nil {
				return err
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			results, err := s.store.ListResults(cmd.Context(), eventID)
			if err != nil {
				return s.out.Fail("failed to read results", err)
			}
			if len(results) == 0 {
				return s.out.Success(results, fmt.Sprintf("Event %d has no results yet.", eventID))
			}
			names, err := s.participantNames(cmd)
			if err != nil {
				return s.out.Fail("failed to read participants", err)
			}
			return s.out.Success(results, strings.TrimRight(formatResults(results, names), "\n"))
		},
	}
}

// formatResults prints one line per result in placement order.
func formatResults(results []contest.Result, names map[int64]string) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "  %d. %s  points=%d sum=%s", r.FinalPlacement, names[r.ParticipantID],
			r.PlacementPointsSum, r.ScoreSum)
		if r.QualifiedForNationals {
			b.WriteString("  qualified")
		}
		if r.IsAdvancement {
			b.WriteString("  advancement")
		}
		b.WriteString("\n")
	}
	return b.String()
}
