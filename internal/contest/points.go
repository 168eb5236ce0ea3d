package contest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// pointsCtx is wide enough that score arithmetic never rounds.
var pointsCtx = apd.BaseContext.WithPrecision(34)

// Points is an exact decimal score value. The zero value is 0.
//
// Points are immutable: every arithmetic method returns a new value.
type Points struct {
	d apd.Decimal
}

// NewPoints returns coeff * 10^exp, e.g. NewPoints(5, -1) is 0.5.
func NewPoints(coeff int64, exp int32) Points {
	var p Points
	p.d.SetFinite(coeff, exp)
	return p
}

// IntPoints returns n as Points.
func IntPoints(n int64) Points {
	var p Points
	p.d.SetInt64(n)
	return p
}

// ParsePoints parses a decimal string such as "9.8" or "-0.35".
func ParsePoints(s string) (Points, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Points{}, NewValidationError("points", fmt.Sprintf("invalid decimal %q", s))
	}
	if d.Form != apd.Finite {
		return Points{}, NewValidationError("points", fmt.Sprintf("non-finite decimal %q", s))
	}
	var p Points
	p.d.Set(d)
	return p, nil
}

// MustParsePoints is ParsePoints for literals; it panics on malformed input.
func MustParsePoints(s string) Points {
	p, err := ParsePoints(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Add returns p + q.
func (p Points) Add(q Points) Points {
	var out Points
	check(pointsCtx.Add(&out.d, &p.d, &q.d))
	return out
}

// Sub returns p - q.
func (p Points) Sub(q Points) Points {
	var out Points
	check(pointsCtx.Sub(&out.d, &p.d, &q.d))
	return out
}

// MulInt returns p * n.
func (p Points) MulInt(n int64) Points {
	var factor, out Points
	factor.d.SetInt64(n)
	check(pointsCtx.Mul(&out.d, &p.d, &factor.d))
	return out
}

// Cmp compares p and q numerically: -1, 0 or +1.
func (p Points) Cmp(q Points) int {
	return p.d.Cmp(&q.d)
}

// Equal reports numeric equality, so 1.0 equals 1.
func (p Points) Equal(q Points) bool { return p.Cmp(q) == 0 }

// Sign returns -1, 0 or +1.
func (p Points) Sign() int { return p.d.Sign() }

// Float64 returns the nearest float64. Only for display and sorting hints.
func (p Points) Float64() float64 {
	f, err := p.d.Float64()
	if err != nil {
		return 0
	}
	return f
}

// String formats p in plain decimal notation.
func (p Points) String() string {
	return p.d.Text('f')
}

// MarshalText implements encoding.TextMarshaler.
func (p Points) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Points) UnmarshalText(text []byte) error {
	parsed, err := ParsePoints(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON emits p as a JSON number.
func (p Points) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (p *Points) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return p.UnmarshalText([]byte(s))
	}
	return p.UnmarshalText(data)
}

func check(_ apd.Condition, err error) {
	if err != nil {
		panic(fmt.Sprintf("contest: decimal arithmetic: %v", err))
	}
}
