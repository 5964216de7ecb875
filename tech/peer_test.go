package tech

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberDecoding(t *testing.T) {
	for _, tc := range []struct {
		desc  string
		input string
		valid bool
		value float64
	}{
		{"number", `0.25`, true, 0.25},
		{"true", `true`, true, 1},
		{"false", `false`, true, 0},
		{"numeric string", `" 3 "`, true, 3},
		{"NaN string", `"NaN"`, false, 0},
		{"infinity string", `"Infinity"`, false, 0},
		{"null", `null`, false, 0},
		{"object", `{"a":1}`, false, 0},
		{"word", `"abc"`, false, 0},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tc.input), &n))
			require.Equal(t, tc.valid, n.Valid)
			require.Equal(t, tc.value, n.Value)
		})
	}
}

func TestNumberInt(t *testing.T) {
	_, ok := Number{Value: 1.5, Valid: true}.Int()
	require.False(t, ok)
	_, ok = Number{Value: -1, Valid: true}.Int()
	require.False(t, ok)
	_, ok = Number{Value: 3}.Int()
	require.False(t, ok)
	v, ok := Number{Value: 3, Valid: true}.Int()
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestDecodeResearch(t *testing.T) {
	data := json.RawMessage(`{
		"automation": {"researched": 1, "level": 1, "progress": null, "contribution": 0, "infinite": 0},
		"mining-productivity": {"researched": false, "level": "4", "progress": 0.5, "contribution": 0.1, "infinite": true},
		"broken": {"researched": 0, "level": "NaN", "progress": 0.2, "contribution": 0.2, "infinite": 0},
		"garbage": 5
	}`)
	research, ok := DecodeResearch(data)
	require.True(t, ok)
	require.Len(t, research, 3)
	require.NotContains(t, research, "garbage")

	records := Records(research)
	require.Equal(t, Map{
		"automation": {Researched: true, Level: 1},
		"mining-productivity": {
			Level:        4,
			Infinite:     true,
			Progress:     NewProgress(0.5),
			Contribution: 0.1,
		},
	}, records)

	_, _, _, ok = research["broken"].Marker()
	require.False(t, ok)

	_, ok = DecodeResearch(json.RawMessage(`[]`))
	require.False(t, ok)
	_, ok = DecodeResearch(json.RawMessage(`null`))
	require.False(t, ok)
}

func TestRecordWireFormat(t *testing.T) {
	data, err := json.Marshal(Map{
		"automation": {Researched: true, Level: 1},
		"physical-projectile-damage": {Level: 7, Infinite: true, Progress: NewProgress(0.5), Contribution: 0.25},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"automation": {"researched": 1, "level": 1, "progress": null, "contribution": 0, "infinite": 0},
		"physical-projectile-damage": {"researched": 0, "level": 7, "progress": 0.5, "contribution": 0.25, "infinite": 1}
	}`, string(data))

	research, ok := DecodeResearch(data)
	require.True(t, ok)
	require.Equal(t, Map{
		"automation":                 {Researched: true, Level: 1},
		"physical-projectile-damage": {Level: 7, Infinite: true, Progress: NewProgress(0.5), Contribution: 0.25},
	}, Records(research))
}
