// Package core provides the business logic for text and spreadsheet ingestion.
//
// This package contains all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Architecture
//
//   - Tokenizer: [TokenizeText] splits free text into one [Record] per
//     non-blank line with word/char counts and an uppercase variant.
//   - Decoder: [SheetDecoder] turns .xlsx, .xls and .csv bytes into header
//     keyed [Row] values. [CheckExtension] rejects other files before any
//     bytes are decoded.
//   - Normalizer: [NormalizeRows] adds sequential ids and the _processed
//     marker.
//   - Export: [ExportBatch] serializes text batches to JSON and file batches
//     to a single-sheet workbook.
//   - Service: [Service] owns the current [Batch]. Each successful ingestion
//     replaces it, [Service.Reset] clears it and subscribers are told about
//     both via [Service.Subscribe].
//
// # Concurrency
//
// Decodes and external text processor runs are bounded by a [Limiter] each.
// A caller that cannot get a slot within the configured wait gets [ErrBusy].
// [Service.Drain] waits for running work during shutdown.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - INP001: empty text input
//   - FILE001-FILE004: file errors (format, decode, size, missing)
//   - BAT001: nothing to export
//   - PROC001: external text processor failure
//   - SEC001: origin rejected on the process boundary
//   - BUSY001, REQ001, UPL004-UPL005, RATE001: request errors
package core
