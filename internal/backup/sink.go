// Package backup moves backup bundles between the local store and a
// destination outside it: a local directory or a Cloud Storage bucket.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// ErrNotFound is returned when the named backup does not exist in the sink.
var ErrNotFound = errors.New("backup: not found")

// Sink stores and retrieves backup bundles by name.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) (location string, err error)
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

var backupName = regexp.MustCompile(`^backup_audit_\d{4}-\d{2}-\d{2}\.json$`)

// Name returns the bundle name for a backup taken on day.
func Name(day time.Time) string {
	return "backup_audit_" + day.Format("2006-01-02") + ".json"
}

// IsName reports whether name follows the backup naming scheme.
func IsName(name string) bool {
	return backupName.MatchString(name)
}

// Latest returns the most recent backup name in names, ignoring anything
// that does not follow the naming scheme.
func Latest(names []string) (string, bool) {
	var matching []string
	for _, n := range names {
		if IsName(n) {
			matching = append(matching, n)
		}
	}
	if len(matching) == 0 {
		return "", false
	}
	sort.Strings(matching)
	return matching[len(matching)-1], true
}

// DirSink keeps backups as files in a local directory.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink writing into dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

// checkName accepts only plain base names, so a typed name cannot reach
// outside the sink.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		filepath.Base(name) != name || path.Base(name) != name {
		return fmt.Errorf("backup: invalid name %q", name)
	}
	return nil
}

func (s *DirSink) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores data under name, replacing an earlier backup of the same day.
func (s *DirSink) Write(_ context.Context, name string, data []byte) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("backup: ensure dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("backup: write %s: %w", name, err)
	}
	return path, nil
}

// Read loads the backup called name.
func (s *DirSink) Read(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("backup: read %s: %w", name, err)
	}
	return data, nil
}

// List returns the file names in the sink directory.
func (s *DirSink) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
