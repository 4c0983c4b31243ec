package omex

import "github.com/binfalse/CombineArchive-fb/internal/formats"

// EntriesWithFormat returns the members whose stored format matches the
// given one: either the literal value or, when format is a known alias,
// its canonical identifier. The check is deliberately one-directional; a
// query by canonical identifier does not match members stored under a
// short alias.
func (a *Archive) EntriesWithFormat(format string) []Entry {
	resolved, resolveErr := formats.Resolve(format)

	var out []Entry
	for _, e := range a.entries {
		if e.Format == format || (resolveErr == nil && e.Format == resolved) {
			out = append(out, e)
		}
	}
	return out
}

// CountWithFormat returns the number of members matching the format.
func (a *Archive) CountWithFormat(format string) int {
	return len(a.EntriesWithFormat(format))
}

// HasEntriesWithFormat reports whether any member matches the format.
func (a *Archive) HasEntriesWithFormat(format string) bool {
	return a.CountWithFormat(format) > 0
}

// FilesWithFormat returns the staged file paths of the members matching
// the format. Remote members have no local file and are skipped.
func (a *Archive) FilesWithFormat(format string) []string {
	var out []string
	for _, e := range a.EntriesWithFormat(format) {
		if path, ok := a.LocalFile(e); ok {
			out = append(out, path)
		}
	}
	return out
}

// EntryByLocation finds a member by its normalized location.
func (a *Archive) EntryByLocation(location string) (Entry, bool) {
	want := a.normalizeLocation(location)
	for _, e := range a.entries {
		if a.normalizeLocation(e.Location) == want {
			return e, true
		}
	}
	return Entry{}, false
}
