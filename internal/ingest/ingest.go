// Package ingest streams a delimited object body into the readings table.
//
// Rows are decoded incrementally and handed to a bounded pool of writer
// goroutines, one PutItem per row. The stage does not report completion until
// every in-flight write has drained, and per-row write failures are collected
// and surfaced rather than discarded.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/sensor-pipeline/internal/store"
)

// DefaultWorkers bounds the number of concurrent table writes.
const DefaultWorkers = 8

// RowWriter persists one decoded reading.
type RowWriter interface {
	PutReading(ctx context.Context, r store.Reading) error
}

// RowWriteError aggregates the individual write failures of an ingest run.
// Rows that did write are already durable; there is no rollback.
type RowWriteError struct {
	Failed int
	Err    error
}

func (e *RowWriteError) Error() string {
	return fmt.Sprintf("%d row write(s) failed: %v", e.Failed, e.Err)
}

func (e *RowWriteError) Unwrap() error { return e.Err }

// Ingester decodes delimited sensor data and writes it row by row.
type Ingester struct {
	writer  RowWriter
	workers int
}

// NewIngester creates an Ingester writing through w with the given worker
// count. A count below 1 falls back to DefaultWorkers.
func NewIngester(w RowWriter, workers int) *Ingester {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Ingester{writer: w, workers: workers}
}

// Result summarises one ingest run.
type Result struct {
	RowsDecoded int
	RowsWritten int
}

// Ingest decodes body as comma-delimited rows of {sensorId, timestamp, value}
// and writes each to the table store. It returns only after every write has
// completed; failures are aggregated into a *RowWriteError. A row with fewer
// than three fields is skipped with a warning.
func (in *Ingester) Ingest(ctx context.Context, body io.Reader) (Result, error) {
	rows := make(chan store.Reading)

	var (
		mu        sync.Mutex
		writeErrs []error
		written   int
	)

	var wg sync.WaitGroup
	for i := 0; i < in.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range rows {
				if err := in.writer.PutReading(ctx, r); err != nil {
					mu.Lock()
					writeErrs = append(writeErrs, err)
					mu.Unlock()
					continue
				}
				mu.Lock()
				written++
				mu.Unlock()
			}
		}()
	}

	decoded, decodeErr := in.decode(ctx, body, rows)
	close(rows)
	wg.Wait() // drain barrier: no completion signal before all writes finish

	result := Result{RowsDecoded: decoded, RowsWritten: written}

	if decodeErr != nil {
		return result, fmt.Errorf("decode row stream: %w", decodeErr)
	}
	if len(writeErrs) > 0 {
		return result, &RowWriteError{Failed: len(writeErrs), Err: errors.Join(writeErrs...)}
	}

	log.Info().
		Int("rowsDecoded", result.RowsDecoded).
		Int("rowsWritten", result.RowsWritten).
		Msg("Ingest complete")
	return result, nil
}

// decode reads rows off the stream and feeds the worker channel. Extraction is
// positional: fields beyond the third are ignored.
func (in *Ingester) decode(ctx context.Context, body io.Reader, rows chan<- store.Reading) (int, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	decoded := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return decoded, nil
		}
		if err != nil {
			return decoded, err
		}
		if len(record) < 3 {
			log.Warn().Int("fields", len(record)).Int("row", decoded).Msg("Skipping short row")
			continue
		}

		decoded++
		select {
		case rows <- store.Reading{SensorID: record[0], Timestamp: record[1], Value: record[2]}:
		case <-ctx.Done():
			return decoded, ctx.Err()
		}
	}
}
