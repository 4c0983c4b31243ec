package omex

// MetadataCodec reads and writes the document format used for archive
// descriptions.
type MetadataCodec interface {
	// Parse reads every description contained in the document at path.
	// Failures wrap ErrMetadataParse.
	Parse(path string) ([]Description, error)

	// Document serializes a single description to its document form.
	Document(d Description) ([]byte, error)
}
