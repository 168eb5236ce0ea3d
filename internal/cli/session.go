package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/batonset/internal/engine"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/store"
)

// session is the open database, ruleset and runner one command works with.
type session struct {
	store  *store.Store
	rules  ruleset.Ruleset
	runner *engine.Runner
	logger *zap.Logger
	out    *OutputFormatter
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openSession loads the ruleset and opens the database named in opts.
// The caller must Close the session.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rules := ruleset.Default()
	if opts.Ruleset != "" {
		var err error
		if rules, err = ruleset.Load(opts.Ruleset); err != nil {
			return nil, out.Fail("failed to load ruleset", err)
		}
		out.VerboseLog("Loaded ruleset %s", opts.Ruleset)
	}

	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or BATONSET_DB")
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", zap.String("path", opts.Database))

	runner := engine.New(st, rules,
		engine.WithLogger(logger),
		engine.WithConcurrency(opts.Concurrency))
	return &session{store: st, rules: rules, runner: runner, logger: logger, out: out}, nil
}

// Close closes the database, logging a failure.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", zap.Error(err))
	}
}

// parseID parses a positive row id argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

// participantNames maps participant ids to display names.
func (s *session) participantNames(cmd *cobra.Command) (map[int64]string, error) {
	ps, err := s.store.ListParticipants(cmd.Context())
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(ps))
	for _, p := range ps {
		names[p.ID] = p.DisplayName()
	}
	return names, nil
}
