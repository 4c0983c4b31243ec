package omex

import "strings"

// Entry is one manifest-listed archive member: a location plus a content
// format. Location uniquely identifies a member within one archive. Format
// is stored as given, a short alias or a canonical identifier, and is not
// resolved when the entry is created.
type Entry struct {
	Location string
	Format   string
}

// IsRemote reports whether the entry references a remote URI rather than a
// staged local file.
func (e Entry) IsRemote() bool { return strings.Contains(e.Location, "://") }
