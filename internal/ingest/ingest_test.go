package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fpang/sensor-pipeline/internal/store"
)

// captureWriter records every reading it is asked to persist. failFor entries
// reject the matching sensor ID.
type captureWriter struct {
	mu       sync.Mutex
	readings []store.Reading
	failFor  map[string]error
}

func (w *captureWriter) PutReading(_ context.Context, r store.Reading) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.failFor[r.SensorID]; err != nil {
		return err
	}
	w.readings = append(w.readings, r)
	return nil
}

func (w *captureWriter) bySensor() map[string]store.Reading {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]store.Reading, len(w.readings))
	for _, r := range w.readings {
		out[r.SensorID] = r
	}
	return out
}

func TestIngest_WritesEveryRowBeforeReturning(t *testing.T) {
	w := &captureWriter{}
	in := NewIngester(w, 4)

	result, err := in.Ingest(context.Background(), strings.NewReader("s1,100,3.5\ns2,200,4.1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsDecoded != 2 || result.RowsWritten != 2 {
		t.Errorf("expected 2 decoded / 2 written, got %+v", result)
	}

	// Both writes must have completed by the time Ingest returns.
	got := w.bySensor()
	if len(got) != 2 {
		t.Fatalf("expected 2 readings persisted, got %d", len(got))
	}
	if r := got["s1"]; r.Timestamp != "100" || r.Value != "3.5" {
		t.Errorf("unexpected s1 reading: %+v", r)
	}
	if r := got["s2"]; r.Timestamp != "200" || r.Value != "4.1" {
		t.Errorf("unexpected s2 reading: %+v", r)
	}
}

func TestIngest_SurfacesRowWriteFailures(t *testing.T) {
	w := &captureWriter{failFor: map[string]error{"s2": errors.New("throttled")}}
	in := NewIngester(w, 2)

	result, err := in.Ingest(context.Background(), strings.NewReader("s1,100,3.5\ns2,200,4.1\ns3,300,5.0\n"))
	if err == nil {
		t.Fatal("expected an aggregated write error")
	}

	var rowErr *RowWriteError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected *RowWriteError, got %T", err)
	}
	if rowErr.Failed != 1 {
		t.Errorf("expected 1 failed row, got %d", rowErr.Failed)
	}
	if result.RowsWritten != 2 {
		t.Errorf("expected the other 2 rows to be written, got %d", result.RowsWritten)
	}
}

func TestIngest_SkipsShortRows(t *testing.T) {
	w := &captureWriter{}
	in := NewIngester(w, 1)

	result, err := in.Ingest(context.Background(), strings.NewReader("s1,100\ns2,200,4.1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsDecoded != 1 || result.RowsWritten != 1 {
		t.Errorf("expected the short row to be skipped, got %+v", result)
	}
}

func TestIngest_IgnoresExtraFields(t *testing.T) {
	w := &captureWriter{}
	in := NewIngester(w, 1)

	_, err := in.Ingest(context.Background(), strings.NewReader("s1,100,3.5,junk\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := w.bySensor()
	if r := got["s1"]; r.Timestamp != "100" || r.Value != "3.5" {
		t.Errorf("expected positional extraction of the first 3 fields, got %+v", r)
	}
}

func TestIngest_EmptyStream(t *testing.T) {
	w := &captureWriter{}
	in := NewIngester(w, 2)

	result, err := in.Ingest(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsDecoded != 0 || result.RowsWritten != 0 {
		t.Errorf("expected no rows, got %+v", result)
	}
}

func TestIngest_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The writer honours the context the way an SDK call would, so every
	// write fails and Ingest still drains cleanly instead of hanging.
	in := NewIngester(ctxWriter{}, 1)

	_, err := in.Ingest(ctx, strings.NewReader("s1,1,1\ns2,2,2\ns3,3,3\n"))
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

type ctxWriter struct{}

func (ctxWriter) PutReading(ctx context.Context, _ store.Reading) error {
	return ctx.Err()
}
