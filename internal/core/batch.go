package core

import (
	"time"

	"github.com/google/uuid"
)

// Source tags where a Batch came from.
type Source string

const (
	SourceText Source = "text"
	SourceFile Source = "file"
)

// Label is the human-readable source badge shown in the preview.
func (s Source) Label() string {
	switch s {
	case SourceText:
		return "Text Input"
	case SourceFile:
		return "File Upload"
	default:
		return string(s)
	}
}

// Batch is an ordered set of Records from a single ingestion.
type Batch struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source"`
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Records   []Record  `json:"records"`
}

// NewBatch stamps records with a fresh batch id and creation time.
func NewBatch(source Source, fileName string, records []Record) *Batch {
	if records == nil {
		records = []Record{}
	}
	return &Batch{
		ID:        uuid.NewString(),
		Source:    source,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
		Records:   records,
	}
}

// Len returns the number of records.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Columns returns the union of record keys in first-seen order.
func (b *Batch) Columns() []string {
	if b == nil {
		return nil
	}
	return UnionKeys(b.Records)
}
