package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names shared by every ingestion path.
const (
	FieldID        = "id"
	FieldProcessed = "_processed"
)

// Text-path field names.
const (
	FieldOriginal  = "original"
	FieldUppercase = "processed"
	FieldLength    = "length"
	FieldWords     = "words"
)

// Field is a single named value inside a Record or Row.
type Field struct {
	Name  string
	Value Value
}

// Record is one normalized unit of output: a text line or a spreadsheet
// row. Field order is insertion order and is preserved through JSON.
//
// Records are immutable once built; accessors return copies.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a Record from fields. A repeated name replaces the
// earlier value in place, keeping its original position.
func NewRecord(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		r.set(f.Name, f.Value)
	}
	return r
}

func (r *Record) set(name string, v Value) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// ID returns the synthetic sequence id, or 0 if the record has none.
func (r Record) ID() int {
	v, ok := r.Get(FieldID)
	if !ok || v.Kind() != KindNumber {
		return 0
	}
	return int(v.Num())
}

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the record's fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Equal reports field-for-field equality, including order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	out := Record{index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		out.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

// Row is one decoded spreadsheet row: column header to cell value, in
// header order. Empty cells are absent.
type Row []Field

// Columns returns the row's column names in order.
func (row Row) Columns() []string {
	cols := make([]string, len(row))
	for i, f := range row {
		cols[i] = f.Name
	}
	return cols
}

// UnionKeys returns the union of keys across records in first-seen order.
func UnionKeys(records []Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, r := range records {
		for _, f := range r.fields {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			keys = append(keys, f.Name)
		}
	}
	return keys
}
