package omex

import "errors"

// Sentinel errors for the archive lifecycle. Callers should use errors.Is
// to match these values.
var (
	// ErrUnpack indicates the physical archive could not be opened or
	// extracted. Packer implementations wrap it.
	ErrUnpack = errors.New("archive unpack failed")

	// ErrPack indicates the physical archive could not be written.
	// Packer implementations wrap it.
	ErrPack = errors.New("archive pack failed")

	// ErrMetadataParse indicates a metadata document referenced by the
	// manifest could not be read. Loading aborts on it rather than
	// silently dropping authorship data.
	ErrMetadataParse = errors.New("metadata document parse failed")

	// ErrSourceNotFound indicates AddEntry was given a path that does not
	// exist. Nothing was added.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrSave indicates a save failed. The in-memory model is unchanged.
	ErrSave = errors.New("archive save failed")
)
