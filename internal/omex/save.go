package omex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/binfalse/CombineArchive-fb/internal/formats"
)

// Save writes the current model to path. Bookkeeping entries left over
// from a previous save are purged, a fresh manifest entry takes index 0,
// every description is written to its own metadata document, manifest.xml
// is regenerated, and the packer builds the physical archive. The new
// member list is swapped into the model only after every step succeeded,
// so a failed save leaves the model as it was. Save failures wrap ErrSave.
func (a *Archive) Save(path string) error {
	if err := a.ensureStaging(); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	manifestFormat, err := formats.Resolve(manifestAlias)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	metadataFormat, err := formats.Resolve(metadataAlias)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	// Purge stale manifest and local metadata entries, then put the fresh
	// manifest entry first. Remote metadata references are kept.
	newEntries := []Entry{{Location: ManifestLocation, Format: manifestFormat}}
	for _, e := range a.entries {
		if a.normalizeLocation(e.Location) == ManifestLocation {
			continue
		}
		if formats.Equivalent(e.Format, metadataAlias) {
			if _, ok := a.LocalFile(e); ok {
				continue
			}
		}
		newEntries = append(newEntries, e)
	}

	// One metadata document per description, index-suffixed so repeated
	// descriptions never collide.
	for i, d := range a.descriptions {
		doc, err := a.codec.Document(d)
		if err != nil {
			return fmt.Errorf("%w: serializing description %d: %v", ErrSave, i, err)
		}
		name := fmt.Sprintf("metadata_%d.rdf", i)
		if err := os.WriteFile(filepath.Join(a.stagingDir, name), doc, 0644); err != nil {
			return fmt.Errorf("%w: writing %s: %v", ErrSave, name, err)
		}
		newEntries = append(newEntries, Entry{Location: "./" + name, Format: metadataFormat})
	}

	manifest := a.manifestFor(newEntries)
	if err := os.WriteFile(filepath.Join(a.stagingDir, "manifest.xml"), manifest, 0644); err != nil {
		return fmt.Errorf("%w: writing manifest: %v", ErrSave, err)
	}

	var files []string
	for _, e := range newEntries {
		if p, ok := a.LocalFile(e); ok {
			files = append(files, p)
		}
	}

	if err := a.packer.Pack(path, files, a.stagingDir); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}

	// Commit. The model reflects the saved archive only from here on.
	a.entries = newEntries
	a.archiveFile = path

	a.logger.Info("archive saved", "path", path, "entries", len(newEntries))
	return nil
}
