package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// Source yields the latest periodic usage readings.
type Source interface {
	Latest() ([]models.ReportSnapshot, error)
}

// ReportFile is the JSON document written by the usage reporting extension.
type ReportFile struct {
	GeneratedAt time.Time               `json:"generatedAt"`
	Entries     []models.ReportSnapshot `json:"entries"`
	Version     int                     `json:"version,omitempty"`
}

// FileSource reads a ReportFile from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Latest returns the entries of the report. A missing report yields no
// entries and no error.
func (s *FileSource) Latest() ([]models.ReportSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report ReportFile
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	for i := range report.Entries {
		if report.Entries[i].Timestamp.IsZero() {
			report.Entries[i].Timestamp = report.GeneratedAt
		}
	}
	return report.Entries, nil
}

// WriteReport atomically replaces the report at path.
func WriteReport(path string, report ReportFile) error {
	if report.Version == 0 {
		report.Version = 1
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
