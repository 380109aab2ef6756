package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
	tmpSuffix      = ".tdvault-tmp"
)

var (
	ErrPathEscapes  = errors.New("path escapes container directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrNestedPath   = errors.New("container files cannot be nested")
)

// ContainerRoot confines file operations to a single container directory
// using the os.Root API. Container files are flat, so every name must be a
// single path element.
type ContainerRoot struct {
	root *os.Root
	path string
}

// Open opens an existing container directory
func Open(dir string) (*ContainerRoot, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open container directory: %w", err)
	}

	return &ContainerRoot{
		root: root,
		path: absPath,
	}, nil
}

// Create creates the container directory if needed and opens it
func Create(dir string) (*ContainerRoot, error) {
	if err := os.MkdirAll(dir, DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create container directory: %w", err)
	}
	return Open(dir)
}

// Close releases the directory handle
func (c *ContainerRoot) Close() error {
	if c.root != nil {
		return c.root.Close()
	}
	return nil
}

// Path returns the absolute directory path
func (c *ContainerRoot) Path() string {
	return c.path
}

// ValidateName checks that name refers to a file directly inside the
// container directory. It rejects:
// - Empty names
// - Absolute paths
// - Paths that escape the directory (using ..)
// - Names with more than one path element
func (c *ContainerRoot) ValidateName(name string) error {
	if name == "" {
		return ErrEmptyPath
	}

	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
			return fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	if strings.ContainsAny(name, `/\`) || filepath.Clean(name) != name {
		return fmt.Errorf("%w: %s", ErrNestedPath, name)
	}

	return nil
}

// ReadFile reads a container file
func (c *ContainerRoot) ReadFile(name string) ([]byte, error) {
	if err := c.ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return c.root.ReadFile(name)
}

// WriteFile replaces a container file. Data is written to a temporary
// file first and renamed into place.
func (c *ContainerRoot) WriteFile(name string, data []byte) error {
	if err := c.ValidateName(name); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	tmp := name + tmpSuffix
	if err := c.root.WriteFile(tmp, data, FilePermSecure); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := c.root.Rename(tmp, name); err != nil {
		_ = c.root.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Stat returns file info for a container file
func (c *ContainerRoot) Stat(name string) (os.FileInfo, error) {
	if err := c.ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return c.root.Stat(name)
}

// Exists reports whether a regular container file exists
func (c *ContainerRoot) Exists(name string) bool {
	info, err := c.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// List returns the sorted names of regular files in the directory
func (c *ContainerRoot) List() ([]string, error) {
	entries, err := fs.ReadDir(c.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list container directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
