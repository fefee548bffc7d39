// Package archive loads class files from jars and directory trees and
// decodes them in bulk.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one class file candidate: its path inside the source and its raw
// bytes.
type Entry struct {
	Name string
	Data []byte
}

// ReadJar returns every .class entry of the jar (or any zip) at path.
// Directories and non-class entries are skipped; nested jars are not
// descended into.
func ReadJar(path string) ([]Entry, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s!%s: %w", path, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s!%s: %w", path, f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Data: data})
	}
	return entries, nil
}

// WalkDir returns every .class file under root. Entry names are relative to
// root with forward slashes, matching jar entry naming.
func WalkDir(root string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Load reads class entries from path, which may be a jar, a directory, or a
// single .class file.
func Load(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		return WalkDir(path)
	case strings.HasSuffix(path, ".class"):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Entry{{Name: filepath.Base(path), Data: data}}, nil
	default:
		return ReadJar(path)
	}
}
