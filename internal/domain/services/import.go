package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Validate without saving
}

// ImportError represents an error for a specific entry during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []ImportError
}

// ImportService appends curated entries read from external files.
// Entries whose ID is already stored are skipped; entries stay append-only.
type ImportService struct {
	repo *ContentRepository
}

// NewImportService creates a new import service.
func NewImportService(repo *ContentRepository) *ImportService {
	return &ImportService{repo: repo}
}

// Import validates and stores raw entries.
func (s *ImportService) Import(ctx context.Context, rawEntries []parsers.RawEntry, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	valid, validationErrors := s.validateEntries(rawEntries)
	result.Errors = validationErrors

	if len(valid) == 0 {
		return result, nil
	}

	batch := convertToEntries(valid)

	if opts.DryRun {
		existing, err := s.repo.ListEntries(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing entries: %w", err)
		}
		fresh := newEntries(existing, batch)
		result.Imported = len(fresh)
		result.Skipped = len(batch) - len(fresh)
		return result, nil
	}

	imported, err := s.repo.appendEntries(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("saving entries: %w", err)
	}

	result.Imported = imported
	result.Skipped = len(batch) - imported
	return result, nil
}

// validateEntries validates raw entries and returns valid ones with any errors.
func (s *ImportService) validateEntries(rawEntries []parsers.RawEntry) ([]parsers.RawEntry, []ImportError) {
	valid := make([]parsers.RawEntry, 0, len(rawEntries))
	var errors []ImportError

	for i := range rawEntries {
		raw := &rawEntries[i]
		lineNum := raw.LineNum
		if lineNum == 0 {
			lineNum = i + 1
		}

		if err := validateRawEntry(raw, lineNum); err != nil {
			errors = append(errors, *err)
			continue
		}

		valid = append(valid, *raw)
	}

	return valid, errors
}

// validateRawEntry validates a single raw entry and returns an error if invalid.
func validateRawEntry(raw *parsers.RawEntry, lineNum int) *ImportError {
	if strings.TrimSpace(raw.Title) == "" {
		return &ImportError{Line: lineNum, Field: "title", Message: "missing required field: title"}
	}
	if strings.TrimSpace(raw.Claim) == "" {
		return &ImportError{Line: lineNum, Field: "claim", Message: "missing required field: claim"}
	}

	if raw.Verdict != "" && !entities.Verdict(raw.Verdict).IsValid() {
		return &ImportError{
			Line:    lineNum,
			Field:   "verdict",
			Value:   raw.Verdict,
			Message: fmt.Sprintf("invalid verdict %q (valid: %s)", raw.Verdict, verdictNames()),
		}
	}

	return nil
}

func verdictNames() string {
	names := make([]string, len(entities.Verdicts))
	for i, v := range entities.Verdicts {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// convertToEntries converts raw rows to domain entries.
func convertToEntries(rawEntries []parsers.RawEntry) []entities.Entry {
	result := make([]entities.Entry, 0, len(rawEntries))
	now := timeNow().UTC()

	for i := range rawEntries {
		raw := &rawEntries[i]
		id := raw.ID
		if id == "" {
			id = generateID("entry")
		}

		result = append(result, entities.Entry{
			ID:         id,
			Title:      strings.TrimSpace(raw.Title),
			Category:   strings.TrimSpace(raw.Category),
			Verdict:    entities.Verdict(raw.Verdict).OrDefault(),
			Confidence: raw.Confidence,
			Tags:       limitTags(raw.Tags),
			Claim:      strings.TrimSpace(raw.Claim),
			Evidence:   copyStrings(raw.Evidence),
			Context:    raw.Context,
			Links:      copyStrings(raw.Links),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return result
}
