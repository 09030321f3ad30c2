package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitHandler_Handle_Defaults(t *testing.T) {
	f := newFixture(t)
	handler := NewSubmitHandler(f.repo)

	claim := strings.Repeat("k", 60)
	sub, err := handler.Handle(t.Context(), SubmitForm{Claim: "  " + claim + "  "})
	require.NoError(t, err)

	assert.Equal(t, "User Submission: "+strings.Repeat("k", 50), sub.Title)
	assert.Equal(t, DefaultCategory, sub.Category)
	assert.Equal(t, DefaultConfidence, sub.Confidence)
	assert.Equal(t, claim, sub.Claim)
	assert.Empty(t, sub.Tags)
	assert.Empty(t, sub.Links)

	subs, err := f.repo.ListSubmissions(t.Context())
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubmitHandler_Handle_AllFields(t *testing.T) {
	f := newFixture(t)
	handler := NewSubmitHandler(f.repo)

	sub, err := handler.Handle(t.Context(), SubmitForm{
		Title:      "Rara bands",
		Category:   "Music",
		Claim:      "Rara shaped carnival music.",
		Confidence: "I'm Certain",
		Tags:       "rara, carnival, ,rara",
		Links:      "https://a.example\n\n  https://b.example  \n",
	})
	require.NoError(t, err)

	assert.Equal(t, "Rara bands", sub.Title)
	assert.Equal(t, []string{"rara", "carnival", "rara"}, sub.Tags)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, sub.Links)
}

func TestSubmitHandler_Handle_EmptyClaim(t *testing.T) {
	f := newFixture(t)
	handler := NewSubmitHandler(f.repo)

	_, err := handler.Handle(t.Context(), SubmitForm{Title: "No claim", Claim: "   "})
	require.ErrorIs(t, err, ErrEmptyClaim)
	assert.Zero(t, f.store.Sets)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: []string{}},
		{name: "trims and drops blanks", input: " a , ,b,", expected: []string{"a", "b"}},
		{name: "keeps duplicates", input: "a,a", expected: []string{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTags(tt.input))
		})
	}
}

func TestParseTags_Cap(t *testing.T) {
	input := strings.TrimSuffix(strings.Repeat("t,", 30), ",")
	assert.Len(t, ParseTags(input), 25)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héé", truncateRunes("hééllo", 3))
	assert.Equal(t, "hi", truncateRunes("hi", 3))
}
