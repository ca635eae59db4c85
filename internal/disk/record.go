package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Record holds the result of the last successful provisioning run.
type Record struct {
	DiskFile string `json:"disk_file"`
	VM       string `json:"vm"`

	// SizeMB and CreatedAt are only known for images this tool created;
	// both stay unset for an image that predates the first recorded run.
	SizeMB    int64      `json:"size_mb,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	LastAttach  time.Time `json:"last_attach"`
	AttachCount int       `json:"attach_count"`

	// Manifest is where the guest provisioner definition was written.
	Manifest string `json:"manifest,omitempty"`
}

// RecordFile stores a Record as JSON beside the disk image.
type RecordFile struct {
	path string
}

// NewRecordFile returns a RecordFile backed by path.
func NewRecordFile(path string) *RecordFile {
	return &RecordFile{path: path}
}

// Path returns the file location.
func (r *RecordFile) Path() string {
	return r.path
}

// Load reads the record. A missing file yields an empty record.
func (r *RecordFile) Load() (*Record, error) {
	rec := &Record{}

	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return rec, nil
	case err != nil:
		return nil, fmt.Errorf("load record: %w", err)
	}

	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("load record %s: %w", r.path, err)
	}
	return rec, nil
}

// Save replaces the record. The new content is written to a temporary
// file in the same directory and renamed over the old one, so readers
// never see a partial record.
func (r *RecordFile) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("save record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}
