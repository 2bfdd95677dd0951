package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a scratch directory owned by exactly one download request
type Workspace struct {
	ID  string
	Dir string
}

// NewWorkspace creates <root>/<namespace>/<uuid>, creating parents as needed
func NewWorkspace(root, namespace string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	id := uuid.New().String()
	dir := filepath.Join(root, namespace, id)

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	// Mkdir, not MkdirAll: an existing directory means the name is taken
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{ID: id, Dir: dir}, nil
}

// Entries returns the names of the files in the workspace in directory order
func (w *Workspace) Entries() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Locate picks the produced audio file, ignoring thumbnail sidecars.
// If the tool left several audio files the first listed one wins.
func (w *Workspace) Locate() (string, error) {
	names, err := w.Entries()
	if err != nil {
		return "", newError(KindInternal, "Failed to read download directory", err)
	}
	if len(names) == 0 {
		return "", newError(KindNoOutput, "No file was downloaded", nil)
	}

	for _, name := range names {
		if !IsSidecar(name) {
			return name, nil
		}
	}
	return "", newError(KindNoAudio, "No audio file was produced", nil)
}

// AudioFile is a produced file read fully into memory
type AudioFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Read loads name from the workspace
func (w *Workspace) Read(name string) (*AudioFile, error) {
	path := filepath.Join(w.Dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(KindInternal, "Failed to read downloaded file", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindInternal, "Failed to read downloaded file", err)
	}

	return &AudioFile{
		Name:        name,
		ContentType: ContentType(name),
		Size:        info.Size(),
		Data:        data,
	}, nil
}

// Cleanup removes every entry and then the directory itself. It keeps going
// after failures and returns them joined.
func (w *Workspace) Cleanup() error {
	var errs []error

	entries, err := os.ReadDir(w.Dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.Dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	if err := os.Remove(w.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
