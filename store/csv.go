package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVAppender writes records to a CSV file, flushing after every record so a
// write failure surfaces on the Append that caused it.
type CSVAppender struct {
	path string
	file *os.File
	w    *csv.Writer
}

// OutputPath returns <dir>/<prefix>-<unix_ms>.csv.
func OutputPath(dir, prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "eventdrain"
	}
	name := prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ".csv"
	return filepath.Join(dir, name)
}

// NewCSVAppender creates the file at path, and its directory if needed.
func NewCSVAppender(path string, header bool) (*CSVAppender, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	a := &CSVAppender{path: path, file: f, w: csv.NewWriter(f)}
	if header {
		if err := a.write(Columns); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return a, nil
}

// Path returns the file being written.
func (a *CSVAppender) Path() string {
	return a.path
}

// Append writes one record.
func (a *CSVAppender) Append(_ context.Context, fields []string) error {
	if err := checkFields(fields); err != nil {
		return err
	}
	return a.write(fields)
}

func (a *CSVAppender) write(fields []string) error {
	if err := a.w.Write(fields); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return fmt.Errorf("failed to flush record: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (a *CSVAppender) Close() error {
	a.w.Flush()
	flushErr := a.w.Error()
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("failed to flush output file: %w", flushErr)
	}
	return nil
}
