package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
)

// NewRulesetCommand creates the ruleset command group.
func NewRulesetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ruleset",
		Short: "Inspect and validate CUE rulesets",
	}
	cmd.AddCommand(newRulesetValidateCommand(rootOpts))
	cmd.AddCommand(newRulesetShowCommand(rootOpts))
	return cmd
}

func newRulesetValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules.cue>",
		Short: "Check a ruleset file against the schema",
		Long: `Compile a CUE ruleset, unify it with the built-in schema and check the
resulting values, without touching any database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			if _, err := ruleset.Load(args[0]); err != nil {
				return failRuleset(out, err)
			}
			return out.Success(map[string]bool{"valid": true}, "✓ Ruleset valid")
		},
	}
}

func newRulesetShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [rules.cue]",
		Short: "Print the effective ruleset",
		Long: `Print the built-in ruleset, or the given file overlaid on it. Without an
argument the --rules flag (or BATONSET_RULESET) is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			path := rootOpts.Ruleset
			if len(args) == 1 {
				path = args[0]
			}
			rules := ruleset.Default()
			if path != "" {
				var err error
				if rules, err = ruleset.Load(path); err != nil {
					return failRuleset(out, err)
				}
			}
			return out.Success(rules, describeRules(rules))
		},
	}
}

// failRuleset reports a ruleset that failed to load. Schema and value
// errors are validation failures; unreadable files are command errors.
func failRuleset(out *OutputFormatter, err error) error {
	var lerr *ruleset.LoadError
	if errors.As(err, &lerr) {
		if outErr := out.Error(string(contest.ErrCodeValidation), err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "invalid ruleset", err)
	}
	return out.Fail("failed to load ruleset", err)
}

func describeRules(r ruleset.Ruleset) string {
	var b strings.Builder
	line := func(k string, v any) { fmt.Fprintf(&b, "%-26s %v\n", k, v) }

	lanes := "from contest"
	if r.Lanes > 0 {
		lanes = fmt.Sprint(r.Lanes)
	}
	lunch := "disabled"
	if r.LunchAfter > 0 {
		lunch = r.LunchAfter.String()
	}
	line("lanes", lanes)
	line("lunch_after", lunch)
	line("min_rest_positions", r.MinRestPositions)
	line("critical_rest_positions", r.CriticalRestPositions)
	line("max_swap_attempts", r.MaxSwapAttempts)
	line("balance_tolerance", r.BalanceTolerance)
	line("default_performance", r.DefaultPerformance)
	line("division_overhead", r.DivisionOverhead)
	line("studio_strict", r.StudioStrict)
	line("score_sum_basis", r.ScoreSumBasis)
	line("require_complete_scoring", r.RequireCompleteScoring)

	qualify := make([]string, 0, len(r.QualifyTopK))
	for c, k := range r.QualifyTopK {
		qualify = append(qualify, fmt.Sprintf("%s=%d", c, k))
	}
	slices.Sort(qualify)
	line("qualify_top_k", strings.Join(qualify, " "))

	wins := make([]string, 0, len(r.AdvancementWins))
	for s, n := range r.AdvancementWins {
		wins = append(wins, fmt.Sprintf("%s=%d", s, n))
	}
	slices.Sort(wins)
	line("advancement_wins", strings.Join(wins, " "))

	w := r.Weights
	line("weights", fmt.Sprintf("drop=%s two_hand=%s fall=%s break=%s time_per_second=%s no_salute=%s improper_salute=%s",
		w.Drop, w.TwoHand, w.Fall, w.Break, w.TimePerSecond, w.NoSalute, w.ImproperSalute))
	return strings.TrimRight(b.String(), "\n")
}
