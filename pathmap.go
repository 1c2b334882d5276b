package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Root is the base directory requests are served from.
type Root string

// Resolve appends the raw request path to the base directory. The path is
// not cleaned or decoded, so ".." segments can leave the base directory.
func (r Root) Resolve(uri string) string {
	return string(r) + uri
}

// regularFile stats p on every call. Directories and anything else that is
// not a regular file count as missing.
func regularFile(p string) (fs.FileInfo, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceNotFound, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrResourceNotFound, p)
	}
	return fi, nil
}

// createIfMissing creates an empty file at p when nothing exists there yet.
func createIfMissing(p string) error {
	if _, err := os.Lstat(p); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}
	return f.Close()
}
