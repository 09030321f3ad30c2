// Package parsers provides parsers for importing entries from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawEntry represents an entry parsed from an external source before validation.
type RawEntry struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Claim      string   `json:"claim"`
	Context    string   `json:"context,omitempty"`
	Verdict    string   `json:"verdict,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
	Links      []string `json:"links,omitempty"`
	LineNum    int      `json:"-"` // Line number in source file (set by parser)
}

// Parser defines the interface for parsing entries from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawEntry, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
