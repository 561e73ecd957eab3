package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/errors"
)

func buildResponse(t *testing.T, out map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"audio": map[string]any{"out": out}})
	require.NoError(t, err)
	return b
}

func TestNumber(t *testing.T) {
	v, err := Number(buildResponse(t, map[string]any{"level": 42.5}), "level")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)

	tests := []struct {
		name string
		buf  string
		want float64
	}{
		{"negative", `{"level":-23.5}`, -23.5},
		{"integer", `{"level":80,"mute":false}`, 80},
		{"whitespace", `{"level":  12.25 }`, 12.25},
		{"inside array", `[{"level":7}]`, 7},
		{"exponent", `{"level":1e1}`, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Number([]byte(tt.buf), "level")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberFailures(t *testing.T) {
	tests := []struct {
		name     string
		buf      string
		sentinel error
	}{
		{"missing key", `{"mute":true}`, errors.ErrNotFound},
		{"trailing characters", `{"level":42.5dB}`, errors.ErrParse},
		{"null", `{"level":null}`, errors.ErrParse},
		{"string value", `{"level":"42"}`, errors.ErrParse},
		{"truncated after colon", `{"level":`, errors.ErrParse},
		{"truncated scalar", `{"level":42.`, errors.ErrParse},
		{"object value", `{"level":{"a":1}}`, errors.ErrParse},
		{"empty buffer", ``, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Number([]byte(tt.buf), "level")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestBoolean(t *testing.T) {
	v, err := Boolean(buildResponse(t, map[string]any{"mute": true}), "mute")
	require.NoError(t, err)
	assert.True(t, v)

	tests := []struct {
		name string
		buf  string
		want bool
	}{
		{"false literal", `{"mute":false}`, false},
		{"spaced", `{"mute" : true}`, true},
		{"quoted value uses nearest token", `{"mute":"false"}`, false},
		{"nested value", `{"mute":{"state":true}}`, true},
		{"nearer wins", `{"mute":{"a":false,"b":true}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Boolean([]byte(tt.buf), "mute")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = Boolean([]byte(`{"level":1}`), "mute")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = Boolean([]byte(`{"mute":null}`), "mute")
	assert.ErrorIs(t, err, errors.ErrParse)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want string
	}{
		{"quoted", `{"name":"KH 120"}`, "KH 120"},
		{"escaped quote", `{"name":"a\"b","x":1}`, `a\"b`},
		{"object verbatim", `{"out":{"level":1,"mute":[true]},"x":2}`, `{"level":1,"mute":[true]}`},
		{"array verbatim", `{"out":[1,[2,3]]}`, `[1,[2,3]]`},
		{"brace inside string", `{"out":{"s":"}"}}`, `{"s":"}"}`},
		{"scalar token", `{"out": null }`, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "out"
			if tt.name == "quoted" || tt.name == "escaped quote" {
				key = "name"
			}
			got, err := String([]byte(tt.buf), key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := String([]byte(`{"a":1}`), "name")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = String([]byte(`{"name":"unterminated`), "name")
	assert.ErrorIs(t, err, errors.ErrParse)

	_, err = String([]byte(`{"out":{"level":1`), "out")
	assert.ErrorIs(t, err, errors.ErrParse)
}
