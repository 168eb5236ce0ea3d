package contest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPoints_ExactTenths(t *testing.T) {
	tenth := NewPoints(1, -1)
	sum := tenth.Add(tenth).Add(tenth)

	assert.True(t, sum.Equal(MustParsePoints("0.3")), "0.1+0.1+0.1 = %s", sum)
	assert.True(t, tenth.MulInt(3).Equal(MustParsePoints("0.3")))
}

func TestPoints_SubMayGoNegative(t *testing.T) {
	got := MustParsePoints("1.5").Sub(MustParsePoints("2.0"))

	assert.Equal(t, -1, got.Sign())
	assert.True(t, got.Equal(MustParsePoints("-0.5")))
}

func TestPoints_EqualIgnoresTrailingZeros(t *testing.T) {
	assert.True(t, MustParsePoints("1.0").Equal(IntPoints(1)))
	assert.Equal(t, 0, MustParsePoints("8.80").Cmp(MustParsePoints("8.8")))
}

func TestParsePoints_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "NaN", "Infinity"} {
		_, err := ParsePoints(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, IsValidationError(err))
	}
}

func TestPoints_String(t *testing.T) {
	assert.Equal(t, "9.8", MustParsePoints("9.8").String())
	assert.Equal(t, "0.5", NewPoints(5, -1).String())
	assert.Equal(t, "0", Points{}.String())
}

func TestPoints_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		P Points `json:"p"`
	}{MustParsePoints("8.8")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p": 8.8}`, string(data))

	var out struct {
		A Points `json:"a"`
		B Points `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 9.75, "b": "-1.5"}`), &out))
	assert.True(t, out.A.Equal(MustParsePoints("9.75")))
	assert.True(t, out.B.Equal(MustParsePoints("-1.5")))
}

func TestPoints_YAML(t *testing.T) {
	var out struct {
		Raw Points `yaml:"raw"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("raw: 9.8\n"), &out))
	assert.True(t, out.Raw.Equal(MustParsePoints("9.8")))
}
