package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/services"
)

// Submission form defaults.
const (
	DefaultCategory   = "Other"
	DefaultConfidence = "Not sure"
	titlePrefix       = "User Submission: "
	titleClaimRunes   = 50
)

// ErrEmptyClaim is returned when the form has no claim text.
var ErrEmptyClaim = errors.New("claim is required")

// SubmitForm is the raw visitor input for a new claim.
type SubmitForm struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Claim      string `json:"claim"`
	Confidence string `json:"confidence"`
	Tags       string `json:"tags"`  // comma separated
	Links      string `json:"links"` // one per line
}

// SubmitHandler turns visitor input into pending submissions.
type SubmitHandler struct {
	repo *services.ContentRepository
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(repo *services.ContentRepository) *SubmitHandler {
	return &SubmitHandler{
		repo: repo,
	}
}

// Handle validates the form and queues a submission. A blank claim returns
// ErrEmptyClaim before anything reaches the repository.
func (h *SubmitHandler) Handle(ctx context.Context, form SubmitForm) (*entities.Submission, error) {
	in, err := form.toInput()
	if err != nil {
		return nil, err
	}

	sub, err := h.repo.AddSubmission(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("adding submission: %w", err)
	}
	return sub, nil
}

func (f SubmitForm) toInput() (entities.SubmissionInput, error) {
	claim := strings.TrimSpace(f.Claim)
	if claim == "" {
		return entities.SubmissionInput{}, ErrEmptyClaim
	}

	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = titlePrefix + truncateRunes(claim, titleClaimRunes)
	}

	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = DefaultCategory
	}

	confidence := strings.TrimSpace(f.Confidence)
	if confidence == "" {
		confidence = DefaultConfidence
	}

	return entities.SubmissionInput{
		Title:      title,
		Category:   category,
		Claim:      claim,
		Confidence: confidence,
		Tags:       ParseTags(f.Tags),
		Links:      SplitLines(f.Links),
	}, nil
}

// ParseTags splits a comma separated tag list, trimming items, dropping
// empty ones and keeping at most entities.MaxTags. Duplicates are kept.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
		if len(tags) == entities.MaxTags {
			break
		}
	}
	return tags
}

// SplitLines splits s into trimmed, non-empty lines.
func SplitLines(s string) []string {
	lines := []string{}
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
