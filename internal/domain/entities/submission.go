package entities

import "time"

// Submission is an unreviewed claim waiting in the moderation queue.
type Submission struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Claim      string    `json:"claim"`
	Confidence string    `json:"confidence"`
	Tags       []string  `json:"tags"`
	Links      []string  `json:"links"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmissionInput holds the caller-supplied fields of a new submission.
type SubmissionInput struct {
	Title      string
	Category   string
	Claim      string
	Confidence string
	Tags       []string
	Links      []string
}
