package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// addTree watches root and, when it is a directory, every directory below
// it. Failing to watch root itself is an error; subdirectories that vanish
// or refuse a watch mid-walk are logged and skipped.
//
// A regular file is only recorded here. Editors that save by renaming a
// temp file over the original drop any watch on the file itself, so files
// are observed through their parent directory instead (watchFileParents).
func (p *Producer) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch: %s: %w", root, err)
	}
	if !info.IsDir() {
		p.files[root] = true
		return nil
	}

	if err := p.fs.Add(root); err != nil {
		return fmt.Errorf("watch: add %s: %w", root, err)
	}
	p.dirs[root] = true

	for _, dir := range collectRecursiveDirs(root) {
		if err := p.fs.Add(dir); err != nil {
			p.log.Warn("watch error", "path", dir, "error", err)
			continue
		}
		p.dirs[dir] = true
	}
	return nil
}

// watchFileParents adds the parent of every file root that is not already
// watched as part of a directory root.
func (p *Producer) watchFileParents() error {
	for file := range p.files {
		parent := filepath.Dir(file)
		if p.dirs[parent] || p.filtered[parent] {
			continue
		}
		if err := p.fs.Add(parent); err != nil {
			return fmt.Errorf("watch: add %s: %w", parent, err)
		}
		p.filtered[parent] = true
	}
	return nil
}

// ignored reports events for siblings of a watched file.
func (p *Producer) ignored(path string) bool {
	return p.filtered[filepath.Dir(path)] && !p.files[path]
}

func collectRecursiveDirs(root string) []string {
	dirs := []string{}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs
}
