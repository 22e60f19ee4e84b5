package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

// ScanObjects returns the store-relative paths of all objects under
// root. Objects are regular files sitting at exactly depth path
// components below root; the walk prunes directories at the object
// level so it never descends into object-internal structure, and it
// ignores stray files at other depths.
func ScanObjects(root string, depth int) ([]string, error) {
	var objects []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == root {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			level := strings.Count(rel, string(filepath.Separator)) + 1
			if de.IsDir() {
				if level >= depth {
					return filepath.SkipDir
				}
				return nil
			}
			if level == depth && de.IsRegular() {
				objects = append(objects, filepath.ToSlash(rel))
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return objects, nil
}

// DirEmpty reports whether dir contains no entries.
func DirEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
