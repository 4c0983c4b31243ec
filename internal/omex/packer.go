package omex

// Packer handles the physical archive container. Implementations extract
// archives into staging directories and build new archives from staged
// files.
type Packer interface {
	// Unpack extracts the archive at archivePath into a fresh staging
	// directory and returns its path. Failures wrap ErrUnpack.
	Unpack(archivePath string) (string, error)

	// Pack writes an archive at archivePath containing the given files,
	// stored under their paths relative to baseDir. Failures wrap ErrPack.
	Pack(archivePath string, files []string, baseDir string) error
}
