package omex

// Description is metadata about the whole archive or about one member.
// The payload (creators, dates, free text) is owned by the metadata codec;
// the archive only tracks what a description refers to and whether it
// carries any content.
type Description interface {
	// About returns the location the description refers to, or "" when it
	// describes the archive as a whole.
	About() string

	// SetAbout points the description at a location.
	SetAbout(about string)

	// Empty reports whether the description carries no meaningful content.
	// Empty descriptions are never persisted.
	Empty() bool
}
