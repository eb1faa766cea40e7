// Package home manages the epcbook home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the epcbook home directory.
	DefaultDirName = ".epcbook"

	// UploadsDirName holds partbook files uploaded through the review server.
	UploadsDirName = "uploads"

	// OutputsDirName holds extraction results awaiting review or submission.
	OutputsDirName = "outputs"

	// WorkDirName is the parent for per-run extraction workdirs.
	WorkDirName = "work"

	// TrackerFileName is the processed-files log.
	TrackerFileName = "processed_files.json"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the epcbook home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.epcbook).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// UploadsPath returns the uploads directory.
func (d *Dir) UploadsPath() string {
	return filepath.Join(d.path, UploadsDirName)
}

// OutputsPath returns the extraction outputs directory.
func (d *Dir) OutputsPath() string {
	return filepath.Join(d.path, OutputsDirName)
}

// WorkPath returns the parent directory for per-run temp workdirs.
func (d *Dir) WorkPath() string {
	return filepath.Join(d.path, WorkDirName)
}

// TrackerPath returns the path to the processed-files log.
func (d *Dir) TrackerPath() string {
	return filepath.Join(d.path, TrackerFileName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// OutputPath returns the result file path for one extraction job.
func (d *Dir) OutputPath(jobID string) string {
	return filepath.Join(d.OutputsPath(), jobID+".json")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.UploadsPath(), d.OutputsPath(), d.WorkPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
