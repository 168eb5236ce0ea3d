package ruleset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/batonset/internal/contest"
)

//go:embed schema.cue
var schemaCUE string

// LoadError reports a ruleset file that failed to parse or violates the
// schema. Pos carries the CUE source position when one is known.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// file mirrors the CUE schema. Pointers distinguish absent fields so that
// only what the file states overrides the defaults.
type file struct {
	Lanes                  *int            `json:"lanes"`
	LunchAfter             *string         `json:"lunch_after"`
	MinRestPositions       *int            `json:"min_rest_positions"`
	CriticalRestPositions  *int            `json:"critical_rest_positions"`
	MaxSwapAttempts        *int            `json:"max_swap_attempts"`
	BalanceTolerance       *float64        `json:"balance_tolerance"`
	DefaultPerformance     *string         `json:"default_performance"`
	DivisionOverhead       *string         `json:"division_overhead"`
	StudioStrict           *bool           `json:"studio_strict"`
	ScoreSumBasis          *string         `json:"score_sum_basis"`
	RequireCompleteScoring *bool           `json:"require_complete_scoring"`
	QualifyTopK            map[string]int  `json:"qualify_top_k"`
	AdvancementWins        map[string]int  `json:"advancement_wins"`
	Weights                json.RawMessage `json:"weights"`
}

// Load reads a CUE ruleset file, validates it against the embedded schema
// and overlays it on Default.
func Load(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("read ruleset: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles CUE source (filename is used for error positions only).
func Parse(src []byte, filename string) (Ruleset, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Ruleset{}, fmt.Errorf("compile ruleset schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Ruleset"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Ruleset{}, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Ruleset{}, formatCUEError(err)
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return Ruleset{}, formatCUEError(err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return Ruleset{}, fmt.Errorf("decode ruleset: %w", err)
	}

	r, err := f.overlay(Default())
	if err != nil {
		return Ruleset{}, err
	}
	if err := r.Validate(); err != nil {
		return Ruleset{}, err
	}
	return r, nil
}

func (f file) overlay(r Ruleset) (Ruleset, error) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&r.Lanes, f.Lanes)
	setInt(&r.MinRestPositions, f.MinRestPositions)
	setInt(&r.CriticalRestPositions, f.CriticalRestPositions)
	setInt(&r.MaxSwapAttempts, f.MaxSwapAttempts)

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"lunch_after", f.LunchAfter, &r.LunchAfter},
		{"default_performance", f.DefaultPerformance, &r.DefaultPerformance},
		{"division_overhead", f.DivisionOverhead, &r.DivisionOverhead},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return Ruleset{}, contest.NewValidationError(d.name, fmt.Sprintf("invalid duration %q", *d.src))
		}
		*d.dst = parsed
	}

	if f.BalanceTolerance != nil {
		r.BalanceTolerance = *f.BalanceTolerance
	}
	if f.StudioStrict != nil {
		r.StudioStrict = *f.StudioStrict
	}
	if f.RequireCompleteScoring != nil {
		r.RequireCompleteScoring = *f.RequireCompleteScoring
	}
	if f.ScoreSumBasis != nil {
		r.ScoreSumBasis = ScoreBasis(*f.ScoreSumBasis)
	}
	for k, v := range f.QualifyTopK {
		c, err := contest.ParseClassification(k)
		if err != nil {
			return Ruleset{}, err
		}
		r.QualifyTopK[c] = v
	}
	for k, v := range f.AdvancementWins {
		s, err := contest.ParseStatusLevel(k)
		if err != nil {
			return Ruleset{}, err
		}
		r.AdvancementWins[s] = v
	}
	if len(f.Weights) > 0 {
		// Absent weights keep their defaults.
		if err := json.Unmarshal(f.Weights, &r.Weights); err != nil {
			return Ruleset{}, contest.NewValidationError("weights", err.Error())
		}
	}
	return r, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}
