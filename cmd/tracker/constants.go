package main

// Default limits for CLI commands.
const (
	DefaultListLimit    = 50
	DefaultHistoryLimit = 20
)

// Valid export formats.
var validFormats = []string{"json", "csv", "markdown"}
