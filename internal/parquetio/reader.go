// Package parquetio reads and writes rate-card observations as Parquet.
package parquetio

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billaudit/internal/model"
)

// Reader wraps a parquet GenericReader for streaming ObservationRow records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.ObservationRow]
}

// Open opens a Parquet file, checks its columns and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}

	r := parquet.NewGenericReader[model.ObservationRow](pf)
	return &Reader{file: f, reader: r}, nil
}

// NumRows returns the total number of rows in the Parquet file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into the provided slice.
// Returns the number of rows read and io.EOF when done.
func (r *Reader) Read(rows []model.ObservationRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// ReadAll drains the file in batches of batchSize rows.
func (r *Reader) ReadAll(batchSize int) ([]model.ObservationRow, error) {
	if batchSize <= 0 {
		batchSize = 1024
	}
	out := make([]model.ObservationRow, 0, r.NumRows())
	buf := make([]model.ObservationRow, batchSize)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
