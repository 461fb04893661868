package scopus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare id", "85012345678", "85012345678"},
		{"scopus id prefix", "SCOPUS_ID:85012345678", "85012345678"},
		{"eid prefix", "2-s2.0-85012345678", "85012345678"},
		{"both prefixes", "SCOPUS_ID:2-s2.0-85012345678", "85012345678"},
		{"lowercase prefix", "scopus_id:85012345678", "85012345678"},
		{"whitespace", "  85012345678\t", "85012345678"},
		{"whitespace around prefix", " SCOPUS_ID: 85012345678 ", "85012345678"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"only prefix", "SCOPUS_ID:", ""},
		{"prefix in middle kept", "85SCOPUS_ID:1", "85SCOPUS_ID:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"SCOPUS_ID:2-s2.0-123", "2-s2.0-2-s2.0-9", " x ", "", "SCOPUS_ID:SCOPUS_ID:5"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize(%q) not idempotent", in)
	}
}

func TestNormalize_PrefixFormsAgree(t *testing.T) {
	for _, id := range []string{"85012345678", "0037", "1"} {
		forms := []string{id, "SCOPUS_ID:" + id, "2-s2.0-" + id, EID(id), " SCOPUS_ID:2-s2.0-" + id + " "}
		for _, f := range forms {
			assert.Equal(t, id, Normalize(f), "form %q", f)
		}
	}
}

func TestNormalizeAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "SCOPUS_ID:42", "42"},
		{"json number", json.Number("85012345678"), "85012345678"},
		{"float without exponent", float64(85012345678), "85012345678"},
		{"int", 7, "7"},
		{"nil", nil, ""},
		{"bool", true, ""},
		{"object", map[string]any{"id": "1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAny(tt.input))
		})
	}
}

func TestEID(t *testing.T) {
	assert.Equal(t, "2-s2.0-123", EID("SCOPUS_ID:123"))
	assert.Equal(t, "", EID("  "))
}

func TestCoverYear(t *testing.T) {
	assert.Equal(t, "2019", coverYear("2019-05-01"))
	assert.Equal(t, "2019", coverYear("2019"))
	assert.Equal(t, "20", coverYear("20"))
	assert.Equal(t, "", coverYear(""))
}
