package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Area is the interface for a managed upload directory.
// Replaced assets are deleted from their area; files outside it never are.
type Area interface {
	Save(filename string, data io.Reader) (string, error)
	Contains(path string) bool
	Delete(path string) error
	PathFor(name string) string
	EnsureDir() error
}

// ManagedDir stores uploaded files in a single local directory.
type ManagedDir struct {
	basePath string
}

// NewManagedDir creates a managed storage area rooted at basePath.
// The path is made absolute so stored paths compare stably no matter
// the working directory.
func NewManagedDir(basePath string) *ManagedDir {
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	return &ManagedDir{basePath: filepath.Clean(basePath)}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (md *ManagedDir) EnsureDir() error {
	if err := os.MkdirAll(md.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", md.basePath, err)
	}
	return nil
}

// Save writes data to a new file named <unix-millis>_<sanitized-name>.
// The timestamp prefix keeps replacements from colliding with the file
// they replace; same-millisecond concurrent uploads may still collide.
// Returns the absolute path of the stored file.
func (md *ManagedDir) Save(filename string, data io.Reader) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeFilename(filename))
	path := filepath.Join(md.basePath, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		// Clean up partial file on error
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// Contains reports whether path refers to a file inside this managed area.
func (md *ManagedDir) Contains(path string) bool {
	if path == "" {
		return false
	}
	base, err := filepath.Abs(md.basePath)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, base+string(filepath.Separator))
}

// Delete removes a file, refusing paths outside the managed area.
// A missing file is not an error.
func (md *ManagedDir) Delete(path string) error {
	if !md.Contains(path) {
		return fmt.Errorf("refusing to delete %s: outside managed area %s", path, md.basePath)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// PathFor returns the path a file with the given base name would have
// inside this area.
func (md *ManagedDir) PathFor(name string) string {
	return filepath.Join(md.basePath, filepath.Base(name))
}

// List returns the base names of all regular files in the area.
func (md *ManagedDir) List() ([]string, error) {
	entries, err := os.ReadDir(md.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory %s: %w", md.basePath, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SanitizeFilename strips directory components and limits length.
func SanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")

	// Take only the base name
	name = filepath.Base(name)

	// Limit length
	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload.bin"
	}

	return name
}
