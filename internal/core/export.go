package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ArtifactKind tags the export format.
type ArtifactKind string

const (
	ArtifactJSON     ArtifactKind = "json"
	ArtifactWorkbook ArtifactKind = "workbook"
)

// Export file names, sheet name and content types.
const (
	TextExportName      = "processed_text_data.json"
	FileExportName      = "processed_data.xlsx"
	ExportSheetName     = "Processed Data"
	JSONContentType     = "application/json"
	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheetName    = "Sheet1"
)

// Artifact is a serialized Batch ready to be saved.
type Artifact struct {
	Kind        ArtifactKind
	Name        string
	ContentType string
	Data        []byte
}

// ExportBatch serializes b according to its source: text batches become a
// JSON document, file batches a single-sheet workbook. b is never modified.
func ExportBatch(b *Batch) (*Artifact, error) {
	if b == nil {
		return nil, ErrNoBatch
	}
	switch b.Source {
	case SourceText:
		data, err := MarshalRecordsJSON(b.Records)
		if err != nil {
			return nil, fmt.Errorf("export json: %w", err)
		}
		return &Artifact{Kind: ArtifactJSON, Name: TextExportName, ContentType: JSONContentType, Data: data}, nil
	case SourceFile:
		data, err := MarshalRecordsWorkbook(b.Records)
		if err != nil {
			return nil, fmt.Errorf("export workbook: %w", err)
		}
		return &Artifact{Kind: ArtifactWorkbook, Name: FileExportName, ContentType: WorkbookContentType, Data: data}, nil
	default:
		return nil, fmt.Errorf("export: unknown source %q", b.Source)
	}
}

// MarshalRecordsJSON renders records as a 2-space indented JSON array.
func MarshalRecordsJSON(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// MarshalRecordsWorkbook writes records to a workbook with one sheet. The
// header row is the union of record keys in first-seen order.
func MarshalRecordsWorkbook(records []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheetName, ExportSheetName); err != nil {
		return nil, err
	}

	columns := UnionKeys(records)
	for c, name := range columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(ExportSheetName, cell, name); err != nil {
			return nil, err
		}
	}

	for r, rec := range records {
		for c, name := range columns {
			v, ok := rec.Get(name)
			if !ok || v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(ExportSheetName, cell, v.Any()); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
