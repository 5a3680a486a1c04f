package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fxbrief/internal/models"
)

// FileName returns the report file name for day.
func FileName(day time.Time) string {
	return "rapport_" + day.Format(models.DateLayout) + ".txt"
}

// Sink writes a report to its dated file and echoes it to stdout.
type Sink struct {
	dir    string
	stdout io.Writer
}

// NewSink creates a sink writing files under dir. A nil stdout uses os.Stdout.
func NewSink(dir string, stdout io.Writer) *Sink {
	if dir == "" {
		dir = "."
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Sink{dir: dir, stdout: stdout}
}

// Path returns where the report for day is written.
func (s *Sink) Path(day time.Time) string {
	return filepath.Join(s.dir, FileName(day))
}

// Write replaces any file of the same day with r.Text, then prints the same
// bytes. The file write is not atomic.
func (s *Sink) Write(r *models.Report) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := s.Path(r.Date)
	if err := os.WriteFile(path, []byte(r.Text), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	if _, err := io.WriteString(s.stdout, r.Text); err != nil {
		return path, fmt.Errorf("printing report: %w", err)
	}

	return path, nil
}
