package omex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/binfalse/CombineArchive-fb/internal/formats"
)

// DefaultArchiveName is the placeholder filename of an archive that has
// never been saved or loaded.
const DefaultArchiveName = "unnamed.omex"

// ManifestLocation is the well-known location of the manifest inside an
// archive.
const ManifestLocation = "./manifest.xml"

const (
	manifestAlias = "manifest"
	metadataAlias = "metadata"
)

// Archive is the aggregate root of one COMBINE archive: the ordered member
// list, the descriptions, and the staging directory holding the member
// files. Entries and descriptions are owned by value. An Archive is not
// safe for concurrent use.
type Archive struct {
	entries      []Entry
	descriptions []Description

	stagingDir  string
	stagingRoot string
	archiveFile string

	packer Packer
	codec  MetadataCodec
	logger Logger
}

// New creates an empty archive. The staging directory is created under
// stagingRoot on first use; leave stagingRoot empty for the system temp
// directory.
func New(packer Packer, codec MetadataCodec, stagingRoot string, logger Logger) *Archive {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Archive{
		archiveFile: DefaultArchiveName,
		stagingRoot: stagingRoot,
		packer:      packer,
		codec:       codec,
		logger:      logger,
	}
}

// Load opens the archive at path: the packer extracts it into a staging
// directory, the manifest is parsed into entries, and metadata-typed
// entries are converted into descriptions. Manifest and metadata
// bookkeeping entries are not exposed as members. The staging directory is
// removed again if loading fails partway.
func Load(path string, packer Packer, codec MetadataCodec, logger Logger) (*Archive, error) {
	a := New(packer, codec, "", logger)

	stagingDir, err := packer.Unpack(path)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", path, err)
	}
	a.stagingDir = stagingDir
	a.archiveFile = path

	if err := a.loadManifest(); err != nil {
		a.Close()
		return nil, err
	}

	a.logger.Info("archive loaded",
		"path", path, "entries", len(a.entries), "descriptions", len(a.descriptions))
	return a, nil
}

// loadManifest parses manifest.xml from the staging directory and
// partitions the content entries: metadata documents become descriptions,
// manifest bookkeeping is dropped, everything else is a member.
func (a *Archive) loadManifest() error {
	parsed, err := parseManifest(filepath.Join(a.stagingDir, "manifest.xml"))
	if err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	var members []Entry
	for _, e := range parsed {
		if formats.Equivalent(e.Format, metadataAlias) {
			if e.IsRemote() {
				continue
			}
			path, _ := a.LocalFile(e)
			descs, err := a.codec.Parse(path)
			if err != nil {
				return fmt.Errorf("parsing metadata %s: %w", e.Location, err)
			}
			a.descriptions = append(a.descriptions, descs...)
			continue
		}
		if formats.Equivalent(e.Format, manifestAlias) {
			continue
		}
		members = append(members, e)
	}
	a.entries = members
	return nil
}

// Entries returns the archive members in manifest order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Descriptions returns the attached metadata descriptions.
func (a *Archive) Descriptions() []Description {
	out := make([]Description, len(a.descriptions))
	copy(out, a.descriptions)
	return out
}

// StagingDir returns the directory holding the staged member files. It is
// empty until the first entry is added to a new archive.
func (a *Archive) StagingDir() string { return a.stagingDir }

// ArchiveFile returns the archive's path on disk, or DefaultArchiveName
// for an archive that has never been saved or loaded.
func (a *Archive) ArchiveFile() string { return a.archiveFile }

// MainFile returns the location the first description refers to, or ""
// when the archive has no descriptions.
func (a *Archive) MainFile() string {
	if len(a.descriptions) == 0 {
		return ""
	}
	return a.descriptions[0].About()
}

// LocalFile resolves the staged file path of a member. ok is false for
// remote members, which have no local file.
func (a *Archive) LocalFile(e Entry) (string, bool) {
	if e.IsRemote() {
		return "", false
	}
	return filepath.Join(a.stagingDir, e.Location), true
}

// AddDescription attaches metadata describing the archive or one of its
// members. Empty descriptions are dropped.
func (a *Archive) AddDescription(d Description) {
	if d == nil || d.Empty() {
		return
	}
	a.descriptions = append(a.descriptions, d)
}

// ClearDescriptions drops all attached descriptions.
func (a *Archive) ClearDescriptions() { a.descriptions = nil }

// Close releases the staging directory. The archive must not be used
// afterwards. Closing an archive that never staged anything is a no-op.
func (a *Archive) Close() error {
	if a.stagingDir == "" {
		return nil
	}
	dir := a.stagingDir
	a.stagingDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}

// ensureStaging creates the staging directory on first use.
func (a *Archive) ensureStaging() error {
	if a.stagingDir != "" {
		return nil
	}
	if a.stagingRoot != "" {
		if err := os.MkdirAll(a.stagingRoot, 0755); err != nil {
			return fmt.Errorf("creating staging root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(a.stagingRoot, "omex-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	a.stagingDir = dir
	return nil
}
