// Package entities contains core domain data structures.
package entities

import "time"

// Verdict is the curator's assessment of a claim.
type Verdict string

// Known verdicts. Unverified is the default for entries created without one.
const (
	VerdictProven     Verdict = "Proven"
	VerdictStrong     Verdict = "Strong"
	VerdictPlausible  Verdict = "Plausible"
	VerdictLikely     Verdict = "Likely"
	VerdictDebunked   Verdict = "Debunked"
	VerdictUnverified Verdict = "Unverified"
)

// Verdicts lists every verdict in display order.
var Verdicts = []Verdict{
	VerdictProven,
	VerdictStrong,
	VerdictPlausible,
	VerdictLikely,
	VerdictDebunked,
	VerdictUnverified,
}

// IsValid reports whether v is one of the known verdicts.
func (v Verdict) IsValid() bool {
	for _, known := range Verdicts {
		if v == known {
			return true
		}
	}
	return false
}

// OrDefault returns v, or VerdictUnverified when v is empty.
func (v Verdict) OrDefault() Verdict {
	if v == "" {
		return VerdictUnverified
	}
	return v
}

// MaxTags is the number of tags kept on an entry or submission.
const MaxTags = 25

// Entry is a published, curated claim.
type Entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Verdict    Verdict   `json:"verdict"`
	Confidence string    `json:"confidence"`
	Tags       []string  `json:"tags"`
	Claim      string    `json:"claim"`
	Evidence   []string  `json:"evidence"`
	Context    string    `json:"context"`
	Links      []string  `json:"links"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// SourceSubmissionID is set when the entry was created by approving a
	// submission.
	SourceSubmissionID string `json:"source_submission_id,omitempty"`
}

// EntryInput holds the caller-supplied fields of a new entry.
type EntryInput struct {
	Title              string
	Category           string
	Verdict            Verdict
	Confidence         string
	Tags               []string
	Claim              string
	Evidence           []string
	Context            string
	Links              []string
	SourceSubmissionID string
}
