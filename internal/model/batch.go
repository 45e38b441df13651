package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BatchKindPull    = "pull"
	BatchKindAnalyze = "analyze"

	BatchStatusCompleted = "completed"
	BatchStatusPartial   = "partial"
	BatchStatusFailed    = "failed"
)

// Batch is the manifest record of one pull or analyze run.
type Batch struct {
	ID         string
	Kind       string
	Status     string
	Message    string
	ReportFile string
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []BatchEntry
}

type BatchEntry struct {
	ID                int64
	BatchID           string
	Filename          string
	ProcessedFilename string
	Status            string
	Error             string
	Fallback          bool
}

func NewBatch(kind string) *Batch {
	return &Batch{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

func (b *Batch) Finish(status, message string) {
	b.Status = status
	b.Message = message
	b.FinishedAt = time.Now().UTC()
}
