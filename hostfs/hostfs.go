// Package hostfs adapts a host filesystem directory tree to
// iso9660.FileInput: a walk that produces a lazily-opened record
// sequence instead of reaching into the writer's internals.
package hostfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/charlesthegreat77/isoforge/iso9660"
)

// NewDirInput walks root and returns an iso9660.FileInput over every
// regular file, directory, and symlink found beneath it. Paths are
// reported relative to root, '/'-separated. Symlinks are recorded with
// their target (for Rock Ridge SL records) rather than followed; other
// non-regular entries (sockets, devices, named pipes) are skipped.
func NewDirInput(root string) (iso9660.FileInput, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var records []iso9660.FileRecord
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			records = append(records, iso9660.FileRecord{
				Path:    rel,
				IsDir:   true,
				ModTime: info.ModTime(),
				Mode:    info.Mode(),
			})
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			records = append(records, iso9660.FileRecord{
				Path:       rel,
				ModTime:    info.ModTime(),
				Mode:       info.Mode(),
				LinkTarget: target,
			})
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		diskPath := path
		records = append(records, iso9660.FileRecord{
			Path:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
			Open: func() (iso9660.FileSource, error) {
				return os.Open(diskPath)
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return iso9660.NewSliceFileInput(records), nil
}
