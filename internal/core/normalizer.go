package core

// NormalizeRows assigns each decoded row a 1-based id and the _processed
// marker, keeping every column key and value as decoded. A sheet column
// named id or _processed is overwritten in place by the synthetic value.
func NormalizeRows(rows []Row) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		fields := make([]Field, 0, len(row)+2)
		fields = append(fields, Field{FieldID, Int(i + 1)})
		fields = append(fields, row...)
		fields = append(fields, Field{FieldProcessed, Bool(true)})

		rec := NewRecord(fields...)
		rec.set(FieldID, Int(i+1))
		records[i] = rec
	}
	return records
}
