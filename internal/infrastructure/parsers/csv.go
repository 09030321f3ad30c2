package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ListSeparator separates items inside list columns (tags, evidence, links).
// A literal separator or backslash inside an item is escaped with a
// backslash; see JoinList.
const ListSeparator = ";"

// listEscape escapes ListSeparator and itself inside list items.
const listEscape = '\\'

// JoinList encodes items as a single list cell that splitList reads back
// unchanged (apart from surrounding whitespace and empty items).
func JoinList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		item = strings.ReplaceAll(item, string(listEscape), string(listEscape)+string(listEscape))
		escaped[i] = strings.ReplaceAll(item, ListSeparator, string(listEscape)+ListSeparator)
	}
	return strings.Join(escaped, ListSeparator)
}

// CSVParser parses entries from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed entries.
// Expected columns: id, title, category, claim, context, verdict, confidence,
// tags, evidence, links. Only title and claim are required.
func (p *CSVParser) Parse(r io.Reader) ([]RawEntry, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range []string{"title", "claim"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawEntries.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawEntry, error) {
	var entries []RawEntry
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		entries = append(entries, p.parseRecord(record, colIndex, lineNum))
	}

	return entries, nil
}

// parseRecord converts a CSV record to a RawEntry.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) RawEntry {
	return RawEntry{
		ID:         getColumn(record, colIndex, "id"),
		Title:      getColumn(record, colIndex, "title"),
		Category:   getColumn(record, colIndex, "category"),
		Claim:      getColumn(record, colIndex, "claim"),
		Context:    getColumn(record, colIndex, "context"),
		Verdict:    getColumn(record, colIndex, "verdict"),
		Confidence: getColumn(record, colIndex, "confidence"),
		Tags:       splitList(getColumn(record, colIndex, "tags")),
		Evidence:   splitList(getColumn(record, colIndex, "evidence")),
		Links:      splitList(getColumn(record, colIndex, "links")),
		LineNum:    lineNum,
	}
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

// splitList splits a list cell on unescaped separators, trimming items and
// dropping empty ones.
func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	var (
		items   []string
		current strings.Builder
		escaped bool
	)
	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, r := range cell {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == listEscape:
			escaped = true
		case string(r) == ListSeparator:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		current.WriteRune(listEscape)
	}
	flush()
	return items
}
