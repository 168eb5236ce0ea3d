package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/ruleset"
	"github.com/roach88/batonset/internal/scoring"
)

// Store is the persistence the Runner needs. *store.Store implements it.
type Store interface {
	Snapshot(ctx context.Context, contestID int64) (*contest.Snapshot, error)
	EventSnapshot(ctx context.Context, eventID int64) (*contest.EventSnapshot, error)
	ListEvents(ctx context.Context, contestID int64) ([]contest.Event, error)
	UpsertScore(ctx context.Context, s contest.Score, w scoring.Weights) (int64, error)
	ReplaceSetSystem(ctx context.Context, contestID, expectedRevision int64, generationID string, positions []contest.Position) error
	ReplaceResults(ctx context.Context, eventID, expectedRevision int64, generationID string,
		placements []scoring.Placement, results []contest.Result) error
}

// DefaultConcurrency bounds how many events TabulateContest tabulates at
// once.
const DefaultConcurrency = 4

// Runner executes scheduling and tabulation runs: read a snapshot, compute
// with the pure packages, persist atomically against the snapshot's
// revision.
//
// Thread-safety model:
//   - Runs on the same contest (scheduling) or the same event (tabulation)
//     are serialized by a keyed mutex
//   - Runs on different keys proceed in parallel
//   - Score writes are independent upserts and take no lock
type Runner struct {
	store       Store
	rules       ruleset.Ruleset
	gen         GenerationIDGenerator
	logger      *zap.Logger
	concurrency int
	locks       *keyedMutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithGenerator sets the generation id source. Default: UUIDv7Generator.
func WithGenerator(g GenerationIDGenerator) Option {
	return func(r *Runner) {
		r.gen = g
	}
}

// WithConcurrency bounds TabulateContest's parallelism.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a Runner over s using rules for every run. Each run checks
// rules with Ruleset.Validate before reading anything, so a hand-built
// ruleset that is invalid fails every run with a ValidationError.
func New(s Store, rules ruleset.Ruleset, opts ...Option) *Runner {
	r := &Runner{
		store:       s,
		rules:       rules,
		gen:         UUIDv7Generator{},
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns the ruleset the Runner applies.
func (r *Runner) Rules() ruleset.Ruleset { return r.rules }
