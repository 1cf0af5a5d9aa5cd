// internal/journal/dir.go
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var snapshotName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Dir keeps one JSON file per snapshot in a directory.
type Dir struct {
	path string
}

var _ Snapshots = (*Dir)(nil)

// NewDir creates the directory if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// SaveSnapshot writes name.json atomically through a temp file and rename.
func (d *Dir) SaveSnapshot(_ context.Context, name string, state any) error {
	file, err := d.file(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(d.path, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("rename snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot reads name.json.
func (d *Dir) LoadSnapshot(_ context.Context, name string, into any) (bool, error) {
	file, err := d.file(name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("unmarshal snapshot %s: %w", name, err)
	}
	return true, nil
}

func (d *Dir) file(name string) (string, error) {
	if !snapshotName.MatchString(name) {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	return filepath.Join(d.path, name+".json"), nil
}
