package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/dataproc/internal/config"
)

// TextProcessor hands text to an external program and returns its output.
type TextProcessor interface {
	Process(ctx context.Context, text string) (string, error)
}

// Service owns the current Batch and runs ingestion, export and the text
// transform. It is created empty; each successful ingestion replaces the
// Batch wholesale and Reset clears it. Failed operations leave the current
// Batch untouched.
type Service struct {
	decoder     Decoder
	processor   TextProcessor
	maxFileSize int64
	log         *slog.Logger

	decodeLimit    *Limiter
	transformLimit *Limiter

	mu      sync.RWMutex
	current *Batch

	listenerMu sync.Mutex
	listeners  map[chan BatchEvent]struct{}
}

// Option customizes a Service.
type Option func(*Service)

// WithDecoder replaces the default SheetDecoder.
func WithDecoder(d Decoder) Option {
	return func(s *Service) { s.decoder = d }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service with no Batch loaded. processor may be nil,
// in which case ProcessText fails.
func NewService(cfg *config.Config, processor TextProcessor, opts ...Option) *Service {
	s := &Service{
		processor:   processor,
		maxFileSize: cfg.Upload.MaxFileSize,
		log:         slog.Default(),
		listeners:   make(map[chan BatchEvent]struct{}),

		decodeLimit:    NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWait),
		transformLimit: NewLimiter(cfg.Transform.MaxConcurrent, cfg.Transform.MaxWait),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.decoder == nil {
		s.decoder = NewSheetDecoder(s.log)
	}
	return s
}

// ProcessTextBatch tokenizes raw into a text Batch and makes it current.
func (s *Service) ProcessTextBatch(ctx context.Context, raw string) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	records, err := TokenizeText(raw)
	if err != nil {
		s.log.Warn("text ingestion rejected", "error", err)
		return nil, err
	}

	b := NewBatch(SourceText, "", records)
	s.replace(b)
	s.log.Info("text batch ingested",
		"batch_id", b.ID,
		"records", b.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// ProcessFileBatch validates the file name, decodes data and normalizes
// the rows into a file Batch which becomes current. The extension is
// checked before the decoder sees any bytes.
func (s *Service) ProcessFileBatch(ctx context.Context, fileName string, data []byte) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	format, err := CheckExtension(fileName)
	if err != nil {
		s.log.Warn("file ingestion rejected", "file", fileName, "error", err)
		return nil, err
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), s.maxFileSize)
	}

	if err := s.decodeLimit.Acquire(ctx); err != nil {
		s.log.Warn("file decode not started", "file", fileName, "error", err)
		return nil, err
	}
	rows, err := s.decodeHeld(data, format)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Format: format, Err: err}
		}
		s.log.Warn("file decode failed", "file", fileName, "format", string(format), "error", err)
		return nil, err
	}

	b := NewBatch(SourceFile, fileName, NormalizeRows(rows))
	s.replace(b)
	s.log.Info("file batch ingested",
		"batch_id", b.ID,
		"file", fileName,
		"format", string(format),
		"records", b.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// decodeHeld runs the decoder and releases the caller's decode slot.
func (s *Service) decodeHeld(data []byte, format Format) ([]Row, error) {
	defer s.decodeLimit.Release()
	return s.decoder.Decode(data, format)
}

// Current returns the current Batch, if any.
func (s *Service) Current() (*Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Reset clears the current Batch.
func (s *Service) Reset() {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.log.Info("batch cleared")
		s.notify(BatchEvent{Type: EventBatchCleared})
	}
}

// ExportCurrent serializes the current Batch.
func (s *Service) ExportCurrent(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := s.Current()
	if !ok {
		return nil, ErrNoBatch
	}

	art, err := ExportBatch(b)
	if err != nil {
		s.log.Error("export failed", "batch_id", b.ID, "error", err)
		return nil, err
	}
	s.log.Info("batch exported",
		"batch_id", b.ID,
		"kind", string(art.Kind),
		"name", art.Name,
		"bytes", len(art.Data),
	)
	return art, nil
}

// ProcessText runs text through the configured external processor.
func (s *Service) ProcessText(ctx context.Context, text string) (string, error) {
	if s.processor == nil {
		return "", &SubprocessError{ExitCode: -1, Stderr: "text processor not configured"}
	}
	if err := s.transformLimit.Acquire(ctx); err != nil {
		return "", err
	}
	defer s.transformLimit.Release()

	start := time.Now()
	out, err := s.processor.Process(ctx, text)
	if err != nil {
		s.log.Warn("text processor failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", err
	}
	s.log.Debug("text processed", "bytes_in", len(text), "bytes_out", len(out))
	return out, nil
}

// ServiceStatus reports limiter occupancy for the health endpoint.
type ServiceStatus struct {
	HasBatch    bool          `json:"has_batch"`
	Decodes     LimiterStatus `json:"decodes"`
	Transforms  LimiterStatus `json:"transforms"`
	Subscribers int           `json:"subscribers"`
}

// Status returns a snapshot of the service state.
func (s *Service) Status() ServiceStatus {
	_, ok := s.Current()
	return ServiceStatus{
		HasBatch:    ok,
		Decodes:     s.decodeLimit.Status(),
		Transforms:  s.transformLimit.Status(),
		Subscribers: s.SubscriberCount(),
	}
}

// Drain waits for running decodes and text processor runs to finish.
// Processor runs ignore request cancellation, so shutdown waits here.
func (s *Service) Drain(ctx context.Context) error {
	if err := s.transformLimit.WaitForDrain(ctx); err != nil {
		return err
	}
	return s.decodeLimit.WaitForDrain(ctx)
}

func (s *Service) replace(b *Batch) {
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()

	s.notify(BatchEvent{
		Type:    EventBatchReplaced,
		BatchID: b.ID,
		Source:  b.Source,
		Records: b.Len(),
	})
}
