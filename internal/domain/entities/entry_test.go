package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdict_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		verdict  Verdict
		expected bool
	}{
		{name: "proven is valid", verdict: VerdictProven, expected: true},
		{name: "strong is valid", verdict: VerdictStrong, expected: true},
		{name: "plausible is valid", verdict: VerdictPlausible, expected: true},
		{name: "likely is valid", verdict: VerdictLikely, expected: true},
		{name: "debunked is valid", verdict: VerdictDebunked, expected: true},
		{name: "unverified is valid", verdict: VerdictUnverified, expected: true},
		{name: "empty string is invalid", verdict: Verdict(""), expected: false},
		{name: "lowercase is invalid", verdict: Verdict("likely"), expected: false},
		{name: "unknown is invalid", verdict: Verdict("Maybe"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.verdict.IsValid())
		})
	}
}

func TestVerdict_OrDefault(t *testing.T) {
	assert.Equal(t, VerdictUnverified, Verdict("").OrDefault())
	assert.Equal(t, VerdictDebunked, VerdictDebunked.OrDefault())
}
