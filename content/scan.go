package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// entryFiles are the file names that mark an entry directory.
var entryFiles = map[string]bool{
	"index.mdx": true,
	"index.md":  true,
}

// ErrWalk marks a scan that could not read the collection tree. The entries
// it would have found are unknown, so callers keep what they already have.
var ErrWalk = errors.New("walk collection")

// IsEntryFile reports whether name is a file the scanner treats as an entry.
func IsEntryFile(name string) bool {
	return entryFiles[filepath.Base(name)]
}

// Scan walks <root>/<collection> and parses every entry file. The entry id is
// the slash-separated directory path relative to the collection root.
//
// Files that fail to parse are skipped; their errors are joined into the
// returned error while the remaining entries are still returned. A failure
// of the walk itself returns no entries and an error matching ErrWalk.
func Scan(root, collection string) ([]Entry, error) {
	base := filepath.Join(root, collection)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var entries []Entry
	var errs []error
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsEntryFile(d.Name()) {
			return nil
		}
		id, err := EntryID(base, path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		e, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		e.Collection = collection
		e.ID = id
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w: %w", base, ErrWalk, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, errors.Join(errs...)
}

// EntryID derives the id of the entry whose file lives at path.
func EntryID(collectionRoot, path string) (string, error) {
	rel, err := filepath.Rel(collectionRoot, filepath.Dir(path))
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", fmt.Errorf("%s: entry file must live in its own directory", path)
	}
	return filepath.ToSlash(rel), nil
}
