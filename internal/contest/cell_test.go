package contest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition_RejectsPartialLunch(t *testing.T) {
	_, err := NewPosition(1, []Cell{LunchBreak{}, Empty{}})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestNewPosition_FillsNilWithEmpty(t *testing.T) {
	pos, err := NewPosition(3, []Cell{Contestant{ParticipantID: 1}, nil})
	require.NoError(t, err)

	assert.Equal(t, KindContestant, pos.Lane(1).Kind())
	assert.Equal(t, KindEmpty, pos.Lane(2).Kind())
	assert.Equal(t, KindEmpty, pos.Lane(9).Kind())
	assert.False(t, pos.IsLunchBreak())
}

func TestLunchPosition(t *testing.T) {
	pos := NewLunchPosition(5, 4)

	assert.True(t, pos.IsLunchBreak())
	assert.False(t, pos.HasConflict())
	for lane := 1; lane <= 4; lane++ {
		assert.Equal(t, KindLunchBreak, pos.Lane(lane).Kind())
	}
}

func TestPosition_HasConflict(t *testing.T) {
	pos, err := NewPosition(1, []Cell{DivisionHeader{Division: "X", HasConflict: true}, Empty{}})
	require.NoError(t, err)
	assert.True(t, pos.HasConflict())
}

func TestPosition_MarshalJSON(t *testing.T) {
	pos, err := NewPosition(2, []Cell{
		DivisionHeader{Division: "Flag - Novice - Tot", EventID: 4},
		Contestant{ParticipantID: 9, EventID: 4, Name: "Ana Ruiz", Division: "Flag - Novice - Tot", HasConflict: true},
		Empty{},
	})
	require.NoError(t, err)

	data, err := json.Marshal(pos)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"position": 2,
		"lunch_break": false,
		"lanes": [
			{"kind": "division_header", "event_id": 4, "division": "Flag - Novice - Tot"},
			{"kind": "contestant", "participant_id": 9, "event_id": 4, "name": "Ana Ruiz", "division": "Flag - Novice - Tot", "has_conflict": true},
			{"kind": "empty"}
		]
	}`, string(data))
}
