/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/acronis/go-migratekit/version"
)

// Entry is a single migration file discovered under the migrations root.
type Entry struct {
	// Name is the slash-separated path of the file relative to the migrations root.
	Name string `json:"name"`
	// Path is the location of the file in the options filesystem.
	Path    string          `json:"-"`
	Version version.Version `json:"version"`
	// Checksum is the hex-encoded SHA-256 of the file contents, empty if checksums are disabled.
	Checksum string `json:"checksum,omitempty"`
}

// Scan walks the migrations root and yields discovered migration files.
// The sequence is lazy and reads the filesystem once per iteration.
// A missing root yields nothing. Files that do not match the pattern are skipped, as well as
// version directories (in directory mode) whose names are not valid versions.
// Entries of one version are yielded in ascending order of their names.
func Scan(opts Options) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		exists, err := afero.DirExists(opts.Fs(), opts.Root())
		if err != nil {
			yield(Entry{}, fmt.Errorf("stat migrations root %s: %w", opts.Root(), err))
			return
		}
		if !exists {
			return
		}
		children, err := afero.ReadDir(opts.Fs(), opts.Root())
		if err != nil {
			yield(Entry{}, fmt.Errorf("read migrations root %s: %w", opts.Root(), err))
			return
		}
		if opts.DirectoryMode() {
			scanVersionDirs(opts, children, yield)
			return
		}
		scanFiles(opts, children, yield)
	}
}

// afero.ReadDir returns entries sorted by name, so no additional sorting is needed here.
func scanFiles(opts Options, children []os.FileInfo, yield func(Entry, error) bool) {
	groupIdx := opts.Pattern().SubexpIndex(VersionGroupName)
	for _, child := range children {
		if child.IsDir() {
			continue
		}
		match := opts.Pattern().FindStringSubmatch(child.Name())
		if match == nil || match[groupIdx] == "" {
			continue
		}
		v, err := version.Parse(match[groupIdx])
		if err != nil {
			continue
		}
		entry, err := newEntry(opts, child.Name(), filepath.Join(opts.Root(), child.Name()), v)
		if !yield(entry, err) || err != nil {
			return
		}
	}
}

func scanVersionDirs(opts Options, children []os.FileInfo, yield func(Entry, error) bool) {
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		v, err := version.Parse(child.Name())
		if err != nil {
			continue
		}
		dirPath := filepath.Join(opts.Root(), child.Name())
		files, err := afero.ReadDir(opts.Fs(), dirPath)
		if err != nil {
			yield(Entry{}, fmt.Errorf("read version directory %s: %w", dirPath, err))
			return
		}
		for _, file := range files {
			if file.IsDir() || !opts.Pattern().MatchString(file.Name()) {
				continue
			}
			entry, err := newEntry(opts, path.Join(child.Name(), file.Name()), filepath.Join(dirPath, file.Name()), v)
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

func newEntry(opts Options, name, filePath string, v version.Version) (Entry, error) {
	entry := Entry{Name: name, Path: filePath, Version: v}
	if !opts.ChecksumEnabled() {
		return entry, nil
	}
	sum, err := fileChecksum(opts.Fs(), filePath)
	if err != nil {
		return Entry{}, err
	}
	entry.Checksum = sum
	return entry, nil
}

func fileChecksum(fs afero.Fs, filePath string) (string, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open migration %s: %w", filePath, err)
	}
	defer f.Close() // nolint: errcheck

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read migration %s: %w", filePath, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
