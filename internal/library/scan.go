// Package library enumerates playable wallpaper images under a source root.
//
// A playable image is a regular file whose name carries one of a fixed set of
// raster extensions (case-insensitive) and that does not live under the
// excluded recycle subtree. Directory trees are walked recursively;
// symlinked directories are followed only when the options ask for it, with
// cycle protection on resolved paths.
package library

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".bmp":  {},
	".gif":  {},
}

// ScanOptions controls directory traversal.
type ScanOptions struct {
	// FollowSymlinks descends into symlinked directories.
	FollowSymlinks bool
	// Exclude is an absolute directory whose subtree is never scanned,
	// typically the recycle area under the primary library.
	Exclude string
}

// IsPlayable reports whether the file name carries a supported raster extension.
func IsPlayable(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Scan returns the playable images under root. Unreadable subdirectories are
// skipped; a missing or unreadable root is an error.
func Scan(root string, opts ScanOptions) ([]string, error) {
	var images []string
	err := walk(root, opts, map[string]struct{}{}, func(path string) bool {
		images = append(images, path)
		return true
	})
	return images, err
}

// HasPlayable reports whether root contains at least one playable image. The
// walk stops at the first hit.
func HasPlayable(root string, opts ScanOptions) bool {
	found := false
	_ = walk(root, opts, map[string]struct{}{}, func(string) bool {
		found = true
		return false
	})
	return found
}

var errStopWalk = errors.New("stop walk")

func walk(root string, opts ScanOptions, visited map[string]struct{}, fn func(string) bool) error {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		if _, seen := visited[resolved]; seen {
			return nil
		}
		visited[resolved] = struct{}{}
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if excluded(path, opts.Exclude) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return nil
			}
			switch {
			case info.IsDir():
				if !opts.FollowSymlinks {
					return nil
				}
				if err := walk(path, opts, visited, fn); err != nil {
					return err
				}
			case info.Mode().IsRegular() && IsPlayable(d.Name()):
				if !fn(path) {
					return errStopWalk
				}
			}
			return nil
		}
		if d.IsDir() || !IsPlayable(d.Name()) {
			return nil
		}
		if !fn(path) {
			return errStopWalk
		}
		return nil
	})
}

func excluded(path, exclude string) bool {
	if exclude == "" {
		return false
	}
	if path == exclude {
		return true
	}
	return strings.HasPrefix(path, exclude+string(filepath.Separator))
}
