package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/dataproc/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWait:       time.Second,
		},
		Transform: config.TransformConfig{
			MaxConcurrent: 1,
			MaxWait:       50 * time.Millisecond,
		},
	}
}

// countingDecoder records how often Decode is called.
type countingDecoder struct {
	calls atomic.Int32
	rows  []Row
	err   error
}

func (d *countingDecoder) Decode([]byte, Format) ([]Row, error) {
	d.calls.Add(1)
	return d.rows, d.err
}

type funcProcessor func(ctx context.Context, text string) (string, error)

func (f funcProcessor) Process(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

func TestService_StartsEmpty(t *testing.T) {
	svc := NewService(testConfig(), nil)
	if b, ok := svc.Current(); ok || b != nil {
		t.Errorf("Current() = %v, %v; want empty", b, ok)
	}
	if _, err := svc.ExportCurrent(context.Background()); !errors.Is(err, ErrNoBatch) {
		t.Errorf("ExportCurrent() error = %v, want ErrNoBatch", err)
	}
}

func TestService_ProcessTextBatch(t *testing.T) {
	svc := NewService(testConfig(), nil)

	b, err := svc.ProcessTextBatch(context.Background(), "hello world\n\nfoo")
	if err != nil {
		t.Fatalf("ProcessTextBatch() error = %v", err)
	}
	if b.Source != SourceText || b.Len() != 2 {
		t.Errorf("batch = %+v", b)
	}
	if cur, ok := svc.Current(); !ok || cur != b {
		t.Error("batch not made current")
	}
}

func TestService_EmptyTextProducesNoBatch(t *testing.T) {
	svc := NewService(testConfig(), nil)

	for _, raw := range []string{"", "   ", "\n\t\n"} {
		b, err := svc.ProcessTextBatch(context.Background(), raw)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("ProcessTextBatch(%q) error = %v, want ErrEmptyInput", raw, err)
		}
		if b != nil {
			t.Errorf("ProcessTextBatch(%q) returned a batch", raw)
		}
	}
	if _, ok := svc.Current(); ok {
		t.Error("empty input produced a current batch")
	}
}

func TestService_UnsupportedExtensionNeverDecodes(t *testing.T) {
	dec := &countingDecoder{}
	svc := NewService(testConfig(), nil, WithDecoder(dec))

	for _, name := range []string{"notes.txt", "DATA.CSV", "file.csv.txt", "noext"} {
		_, err := svc.ProcessFileBatch(context.Background(), name, []byte("a,b\n1,2\n"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ProcessFileBatch(%q) error = %v, want ErrUnsupportedFormat", name, err)
		}
	}
	if n := dec.calls.Load(); n != 0 {
		t.Errorf("decoder called %d times", n)
	}
}

func TestService_ProcessFileBatch(t *testing.T) {
	svc := NewService(testConfig(), nil)

	b, err := svc.ProcessFileBatch(context.Background(), "people.csv", []byte("name,age\nAnn,30\nBo,41\n"))
	if err != nil {
		t.Fatalf("ProcessFileBatch() error = %v", err)
	}
	if b.Source != SourceFile || b.FileName != "people.csv" || b.Len() != 2 {
		t.Errorf("batch = %+v", b)
	}
	for i, r := range b.Records {
		if r.ID() != i+1 {
			t.Errorf("record %d id = %d", i, r.ID())
		}
	}
}

func TestService_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 8
	dec := &countingDecoder{}
	svc := NewService(cfg, nil, WithDecoder(dec))

	_, err := svc.ProcessFileBatch(context.Background(), "big.csv", []byte("0123456789"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("error = %v, want ErrFileTooLarge", err)
	}
	if dec.calls.Load() != 0 {
		t.Error("oversized file was decoded")
	}
}

func TestService_DecodeErrorsAreWrapped(t *testing.T) {
	dec := &countingDecoder{err: errors.New("library exploded")}
	svc := NewService(testConfig(), nil, WithDecoder(dec))

	_, err := svc.ProcessFileBatch(context.Background(), "x.xlsx", []byte("PK"))
	var de *DecodeError
	if !errors.As(err, &de) || de.Format != FormatXLSX {
		t.Fatalf("error = %v, want *DecodeError for xlsx", err)
	}
}

func TestService_FailureKeepsCurrentBatch(t *testing.T) {
	svc := NewService(testConfig(), funcProcessor(func(context.Context, string) (string, error) {
		return "", &SubprocessError{ExitCode: 1, Stderr: "boom"}
	}))
	ctx := context.Background()

	first, err := svc.ProcessTextBatch(ctx, "keep")
	if err != nil {
		t.Fatalf("ProcessTextBatch: %v", err)
	}

	svc.ProcessTextBatch(ctx, "  ")
	svc.ProcessFileBatch(ctx, "a.txt", []byte("x"))
	svc.ProcessFileBatch(ctx, "a.xlsx", []byte("not a workbook"))
	svc.ProcessText(ctx, "x")

	if cur, _ := svc.Current(); cur != first {
		t.Error("failed operation replaced the current batch")
	}
}

func TestService_LastWriteWinsAndReset(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	svc.ProcessTextBatch(ctx, "one")
	second, _ := svc.ProcessFileBatch(ctx, "b.csv", []byte("h\nv\n"))
	if cur, _ := svc.Current(); cur != second {
		t.Error("second ingestion did not replace the batch")
	}

	svc.Reset()
	if _, ok := svc.Current(); ok {
		t.Error("Reset left a batch")
	}
	svc.Reset()
}

func TestService_ExportCurrent(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	svc.ProcessTextBatch(ctx, "a\nb")
	art, err := svc.ExportCurrent(ctx)
	if err != nil {
		t.Fatalf("ExportCurrent: %v", err)
	}
	if art.Kind != ArtifactJSON {
		t.Errorf("Kind = %q, want json", art.Kind)
	}

	svc.ProcessFileBatch(ctx, "a.csv", []byte("h\n1\n"))
	art, err = svc.ExportCurrent(ctx)
	if err != nil {
		t.Fatalf("ExportCurrent: %v", err)
	}
	if art.Kind != ArtifactWorkbook {
		t.Errorf("Kind = %q, want workbook", art.Kind)
	}
}

func TestService_ProcessText(t *testing.T) {
	svc := NewService(testConfig(), funcProcessor(func(_ context.Context, text string) (string, error) {
		return strings.ToUpper(text), nil
	}))
	got, err := svc.ProcessText(context.Background(), "abc")
	if err != nil || got != "ABC" {
		t.Errorf("ProcessText() = %q, %v", got, err)
	}

	unconfigured := NewService(testConfig(), nil)
	if _, err := unconfigured.ProcessText(context.Background(), "abc"); !errors.Is(err, ErrSubprocessFailed) {
		t.Errorf("unconfigured error = %v, want ErrSubprocessFailed", err)
	}
}

func TestService_ProcessTextBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc := NewService(testConfig(), funcProcessor(func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "done", nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.ProcessText(context.Background(), "slow")
	}()
	<-started

	if _, err := svc.ProcessText(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("error = %v, want ErrBusy", err)
	}
	if s := svc.Status(); s.Transforms.Active != 1 {
		t.Errorf("Status().Transforms = %+v", s.Transforms)
	}

	close(release)
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Drain(ctx); err != nil {
		t.Errorf("Drain: %v", err)
	}
}

func TestService_Subscribe(t *testing.T) {
	svc := NewService(testConfig(), nil)
	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	if svc.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d", svc.SubscriberCount())
	}

	b, _ := svc.ProcessTextBatch(context.Background(), "x\ny")
	select {
	case ev := <-events:
		if ev.Type != EventBatchReplaced || ev.BatchID != b.ID || ev.Records != 2 || ev.Source != SourceText {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no replaced event")
	}

	svc.Reset()
	select {
	case ev := <-events:
		if ev.Type != EventBatchCleared {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no cleared event")
	}

	// Failures do not notify.
	svc.ProcessTextBatch(context.Background(), "")
	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestService_UnsubscribeClosesChannel(t *testing.T) {
	svc := NewService(testConfig(), nil)
	events, unsubscribe := svc.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("channel still open")
	}
	if svc.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d", svc.SubscriberCount())
	}

	// A slow subscriber must not block ingestion.
	_, stop := svc.Subscribe()
	defer stop()
	for i := 0; i < listenerBuffer*2; i++ {
		svc.ProcessTextBatch(context.Background(), "x")
	}
}

func TestService_CancelledContext(t *testing.T) {
	dec := &countingDecoder{}
	svc := NewService(testConfig(), nil, WithDecoder(dec))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ProcessTextBatch(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessTextBatch error = %v", err)
	}
	if _, err := svc.ProcessFileBatch(ctx, "a.csv", []byte("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessFileBatch error = %v", err)
	}
	if dec.calls.Load() != 0 {
		t.Error("decoder ran for a cancelled request")
	}
}
