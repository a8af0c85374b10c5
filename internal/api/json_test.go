package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-05-01T12:00:00Z"`:             time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		`"2024-05-01T12:00:00.250000"`:       time.Date(2024, 5, 1, 12, 0, 0, 250_000_000, time.UTC),
		`"2024-05-01 12:00:00"`:              time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		`"2024-05-01"`:                       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		`"2024-05-01T14:00:00+02:00"`:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		`"2024-05-01T12:00:00.123456+00:00"`: time.Date(2024, 5, 1, 12, 0, 0, 123_456_000, time.UTC),
	}
	for in, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, want.Equal(ts.Time), "%s: got %v", in, ts.Time)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestContributionsKeepOrder(t *testing.T) {
	var s Score
	err := json.Unmarshal([]byte(`{"id":1,"score":2.5,"contributions":{"zeta_ratio":0.5,"alpha_margin":-0.25,"mid_debt":0,"missing":null}}`), &s)
	require.NoError(t, err)

	require.Len(t, s.Contributions, 4)
	assert.Equal(t, "zeta_ratio", s.Contributions[0].Feature)
	assert.Equal(t, "alpha_margin", s.Contributions[1].Feature)
	assert.Equal(t, "mid_debt", s.Contributions[2].Feature)
	assert.Equal(t, 0.0, s.Contributions[3].Weight)

	out, err := json.Marshal(s.Contributions)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta_ratio":0.5,"alpha_margin":-0.25,"mid_debt":0,"missing":0}`, string(out))
}

func TestContributionsNullAndEmpty(t *testing.T) {
	var s Score
	require.NoError(t, json.Unmarshal([]byte(`{"contributions":null}`), &s))
	assert.Empty(t, s.Contributions)

	require.NoError(t, json.Unmarshal([]byte(`{"contributions":{}}`), &s))
	assert.Empty(t, s.Contributions)

	assert.Error(t, json.Unmarshal([]byte(`{"contributions":[1,2]}`), &s))
}

func TestTrendPointsUneven(t *testing.T) {
	tr := Trend{Scores: []float64{1, 2, 3}, Timestamps: make([]Timestamp, 2)}
	assert.Len(t, tr.Points(), 2)
}
