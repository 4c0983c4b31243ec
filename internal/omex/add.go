package omex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AddEntry copies the file at sourcePath into the staging area under its
// base name and appends a member entry for it. The format is stored as
// given, alias or canonical identifier. A source that does not exist fails
// with ErrSourceNotFound and leaves the archive unchanged. A staged file
// with the same name is overwritten, and an existing entry at that
// location is replaced rather than duplicated. desc may be nil; a
// non-empty desc is pointed at the staged file and attached.
func (a *Archive) AddEntry(sourcePath, format string, desc Description) (Entry, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("source is a directory: %s", sourcePath)
	}

	if err := a.ensureStaging(); err != nil {
		return Entry{}, err
	}

	name := filepath.Base(sourcePath)
	if err := copyFile(sourcePath, filepath.Join(a.stagingDir, name)); err != nil {
		return Entry{}, fmt.Errorf("staging %s: %w", sourcePath, err)
	}

	entry := Entry{Location: name, Format: format}
	a.replaceOrAppend(entry)

	if desc != nil && !desc.Empty() {
		desc.SetAbout(name)
		a.descriptions = append(a.descriptions, desc)
	}

	a.logger.Debug("entry added", "location", name, "format", format)
	return entry, nil
}

// replaceOrAppend keeps the location-uniqueness invariant: an entry whose
// normalized location matches an existing member takes its place.
func (a *Archive) replaceOrAppend(e Entry) {
	loc := a.normalizeLocation(e.Location)
	for i, existing := range a.entries {
		if a.normalizeLocation(existing.Location) == loc {
			a.entries[i] = e
			return
		}
	}
	a.entries = append(a.entries, e)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
