// Package output writes scan reports.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer defines the interface for report writers.
type Writer interface {
	// WriteReport writes the complete scan report
	WriteReport(report *Report) error

	// Flush flushes any buffered output
	Flush() error

	// Close closes the writer
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format   string
	Pretty   bool
	FilePath string
}

// NewWriter creates a new report writer. JSON is the only format.
func NewWriter(w io.Writer, config Config) Writer {
	switch config.Format {
	case "json":
		return NewJSONWriter(w, config.Pretty)
	default:
		return NewJSONWriter(w, config.Pretty)
	}
}

// Create opens config.FilePath, creating parent directories, and returns a
// writer that closes the file on Close.
func Create(config Config) (Writer, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("output path is empty")
	}
	if dir := filepath.Dir(config.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return NewWriter(f, config), nil
}
