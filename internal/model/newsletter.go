package model

import "time"

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"

	UnknownSource = "Unknown Source"
	UnknownDate   = "Unknown Date"

	ProcessedPrefix = "processed_"
)

type Newsletter struct {
	Filename          string
	ProcessedFilename string
	Source            string
	Subject           string
	Date              string
	PublishedAt       time.Time
	Excerpt           string
}

type ProcessResult struct {
	Filename          string
	ProcessedFilename string
	Status            string
	Error             string
	Fallback          bool
}

// ProcessedName returns the processed counterpart of a newsletter filename.
func ProcessedName(filename string) string {
	return ProcessedPrefix + filename
}
