// Package apk extracts DEX payloads from Android application packages,
// which are ZIP archives carrying classes.dex and multidex siblings
// (classes2.dex, classes3.dex, ...) at the archive root.
package apk

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

var (
	ErrNotZip  = errors.New("apk: not a ZIP archive")
	ErrNoDex   = errors.New("apk: no classes.dex entry")
	ErrNoEntry = errors.New("apk: entry not found")
)

var dexEntryRe = regexp.MustCompile(`^classes([2-9]|[1-9][0-9]+)?\.dex$`)

// File wraps an open APK archive.
type File struct {
	zr *zip.ReadCloser
}

// Open opens an APK and verifies it contains at least one DEX entry.
func Open(path string) (*File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrNotZip, path)
		}
		return nil, fmt.Errorf("apk: open: %w", err)
	}
	f := &File{zr: zr}
	if len(f.Dexes()) == 0 {
		zr.Close()
		return nil, fmt.Errorf("%w in %s", ErrNoDex, path)
	}
	return f, nil
}

// Close releases the underlying archive.
func (f *File) Close() error {
	return f.zr.Close()
}

// Dexes lists the DEX entry names in load order: classes.dex first, then
// classes2.dex, classes3.dex, ... numerically.
func (f *File) Dexes() []string {
	var names []string
	for _, entry := range f.zr.File {
		if dexEntryRe.MatchString(entry.Name) {
			names = append(names, entry.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return dexOrdinal(names[i]) < dexOrdinal(names[j])
	})
	return names
}

// dexOrdinal maps classes.dex to 1 and classesN.dex to N.
func dexOrdinal(name string) int {
	m := dexEntryRe.FindStringSubmatch(name)
	if m[1] == "" {
		return 1
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ReadDex reads one DEX entry into memory.
func (f *File) ReadDex(name string) ([]byte, error) {
	for _, entry := range f.zr.File {
		if entry.Name != name {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("apk: open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("apk: read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
}
