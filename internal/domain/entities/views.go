package entities

// ViewCounts maps an entry ID to the number of times it was opened.
type ViewCounts map[string]int
