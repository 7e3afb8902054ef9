package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirSource serves assets from a flat directory. Hidden files and
// subdirectories are ignored.
type DirSource struct {
	root string
}

// NewDirSource opens a directory-backed asset source.
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content: open source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: %s is not a directory", root)
	}
	return &DirSource{root: root}, nil
}

// List returns the sorted names of all regular files in the directory.
func (d *DirSource) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("content: list assets: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one asset by name. The name must be a bare file name;
// path traversal is rejected.
func (d *DirSource) Load(name string) (*Asset, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("content: invalid asset name %q", name)
	}
	body, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		return nil, fmt.Errorf("content: load asset %q: %w", name, err)
	}
	return NewAsset(name, body)
}
