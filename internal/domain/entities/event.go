package entities

// ChangeKind identifies what a repository mutation changed.
type ChangeKind string

const (
	ChangeEntryAdded        ChangeKind = "entry.added"
	ChangeSubmissionAdded   ChangeKind = "submission.added"
	ChangeSubmissionRemoved ChangeKind = "submission.removed"
	ChangeViewRecorded      ChangeKind = "view.recorded"
	ChangeSeeded            ChangeKind = "seeded"
)

// ChangeEvent is delivered to repository subscribers after a mutation has
// been persisted.
type ChangeEvent struct {
	Kind      ChangeKind `json:"kind"`
	SubjectID string     `json:"subject_id,omitempty"`
}
