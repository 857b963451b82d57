package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFallsBackToZero(t *testing.T) {
	cases := map[string]string{
		"":       "0",
		"   ":    "0",
		"abc":    "0",
		"12.5":   "12.5",
		" 7 ":    "7",
		"-3.25":  "-3.25",
		"1e2":    "100",
		"12,000": "0",
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in).String(), "input %q", in)
	}
}

func TestTextAcceptsStringsNumbersAndNull(t *testing.T) {
	var payload struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"150","b":99.5,"c":null}`), &payload))
	assert.Equal(t, Text("150"), payload.A)
	assert.Equal(t, Text("99.5"), payload.B)
	assert.True(t, payload.C.Empty())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"150","b":"99.5","c":""}`, string(out))
}

func TestFormatRounding(t *testing.T) {
	assert.Equal(t, Text("600.00"), Format2(Parse("600")))
	assert.Equal(t, Text("0.13"), Format2(Parse("0.125")))
	assert.Equal(t, Text("50.0"), Format1(Parse("50")))
	assert.Equal(t, Text("2.5"), Format1(Parse("2.45")))
	assert.True(t, Equal("600", "600.00"))
}
