package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/binfalse/CombineArchive-fb/internal/config"
	"github.com/binfalse/CombineArchive-fb/internal/formats"
	"github.com/binfalse/CombineArchive-fb/internal/metadata"
	"github.com/binfalse/CombineArchive-fb/internal/omex"
	"github.com/binfalse/CombineArchive-fb/internal/pack"
	"github.com/binfalse/CombineArchive-fb/internal/remote"
)

// OmexApp is the application layer between the CLI and the archive packages.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and owns the log file lifecycle.
type OmexApp struct {
	cfg         *config.Config
	packer      omex.Packer
	codec       omex.MetadataCodec
	logger      omex.Logger
	clock       omex.Clock
	idgen       omex.IDGenerator
	sealer      *remote.Sealer
	remoteStore remote.Store
	logFile     *os.File
}

// NewOmexApp creates a fully wired OmexApp from the given config.
// operation identifies the CLI command being run (e.g. "Create", "CatalogScan").
// The caller must call Close when done.
func NewOmexApp(cfg *config.Config, operation string) (*OmexApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	adapter.Info("starting operation", "operation", operation)

	return &OmexApp{
		cfg:     cfg,
		packer:  pack.NewZipPacker(cfg.Storage.StagingDir),
		codec:   metadata.NewRDFCodec(),
		logger:  adapter,
		clock:   omex.RealClock{},
		idgen:   omex.UUIDGenerator{},
		sealer:  remote.NewSealer(cfg.Remote.RecipientPath, cfg.Remote.IdentityPath),
		logFile: logFile,
	}, nil
}

// ArchiveInfo is a read-only summary of an archive for display. LocalPaths
// maps member locations to the staged files they occupied while the
// archive was open; remote members have no local path.
type ArchiveInfo struct {
	Path         string
	MainFile     string
	Entries      []omex.Entry
	Descriptions []omex.Description
	LocalPaths   map[string]string
}

// Create builds a new archive at archivePath from the given source files.
// format applies to every file; when empty, each file's format is derived
// from its extension. describe, when non-empty, annotates the first file,
// which becomes the archive's main file. Returns the number of files added.
func (a *OmexApp) Create(archivePath string, sources []string, format, describe string) (int, error) {
	if _, err := os.Stat(archivePath); err == nil {
		return 0, fmt.Errorf("archive %s already exists (use 'omex add' to extend it)", archivePath)
	}

	arch := omex.New(a.packer, a.codec, a.cfg.Storage.StagingDir, a.logger)
	defer arch.Close()

	n, err := a.addAll(arch, sources, format, describe)
	if err != nil {
		return 0, err
	}
	if err := arch.Save(archivePath); err != nil {
		return 0, err
	}
	return n, nil
}

// Add extends the archive at archivePath with the given source files and
// saves it in place. Flags behave as in Create; a file whose name matches
// an existing member replaces it.
func (a *OmexApp) Add(archivePath string, sources []string, format, describe string) (int, error) {
	arch, err := omex.Load(archivePath, a.packer, a.codec, a.logger)
	if err != nil {
		return 0, err
	}
	defer arch.Close()

	n, err := a.addAll(arch, sources, format, describe)
	if err != nil {
		return 0, err
	}
	if err := arch.Save(archivePath); err != nil {
		return 0, err
	}
	return n, nil
}

// addAll stages every source into arch. describe annotates the first file
// only.
func (a *OmexApp) addAll(arch *omex.Archive, sources []string, format, describe string) (int, error) {
	for i, src := range sources {
		f, err := entryFormat(src, format)
		if err != nil {
			return 0, err
		}

		var desc omex.Description
		if i == 0 && describe != "" {
			desc = a.newDescription(describe)
		}

		if _, err := arch.AddEntry(src, f, desc); err != nil {
			return 0, fmt.Errorf("adding %s: %w", src, err)
		}
	}
	return len(sources), nil
}

// entryFormat picks the format for a source file: the explicit flag value
// when given, otherwise the alias matching the file extension.
func entryFormat(path, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot derive a format for %s: pass --format", filepath.Base(path))
	}
	if _, err := formats.Resolve(ext); err != nil {
		return "", fmt.Errorf("no format known for extension %q, pass --format (see 'omex formats'): %w", ext, err)
	}
	return ext, nil
}

// newDescription builds a description carrying the configured creator and
// the current time.
func (a *OmexApp) newDescription(text string) *metadata.OmexDescription {
	d := metadata.NewDescription()
	d.Text = text
	d.Created = a.clock.Now()

	creator := metadata.VCard{
		FamilyName:   a.cfg.Creator.FamilyName,
		GivenName:    a.cfg.Creator.GivenName,
		Email:        a.cfg.Creator.Email,
		Organization: a.cfg.Creator.Organization,
	}
	if !creator.Empty() {
		d.Creators = append(d.Creators, creator)
	}
	return d
}

// Inspect loads the archive at archivePath and returns a summary of its
// members and descriptions.
func (a *OmexApp) Inspect(archivePath string) (*ArchiveInfo, error) {
	arch, err := omex.Load(archivePath, a.packer, a.codec, a.logger)
	if err != nil {
		return nil, err
	}
	defer arch.Close()

	entries := arch.Entries()
	localPaths := make(map[string]string, len(entries))
	for _, e := range entries {
		if path, ok := arch.LocalFile(e); ok {
			localPaths[e.Location] = path
		}
	}

	return &ArchiveInfo{
		Path:         archivePath,
		MainFile:     arch.MainFile(),
		Entries:      entries,
		Descriptions: arch.Descriptions(),
		LocalPaths:   localPaths,
	}, nil
}

// Extract copies the archive members into destDir, preserving their
// locations. Remote members have no local file and are skipped. Returns
// the extracted paths.
func (a *OmexApp) Extract(archivePath, destDir string) ([]string, error) {
	arch, err := omex.Load(archivePath, a.packer, a.codec, a.logger)
	if err != nil {
		return nil, err
	}
	defer arch.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	var extracted []string
	for _, e := range arch.Entries() {
		src, ok := arch.LocalFile(e)
		if !ok {
			a.logger.Warn("skipping remote member", "location", e.Location)
			continue
		}

		rel := filepath.FromSlash(strings.TrimPrefix(e.Location, "./"))
		dest := filepath.Join(destDir, rel)
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("member %s escapes destination directory", e.Location)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", e.Location, err)
		}
		if err := copyFile(src, dest); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", e.Location, err)
		}
		extracted = append(extracted, dest)
	}

	a.logger.Info("archive extracted", "path", archivePath, "dest", destDir, "files", len(extracted))
	return extracted, nil
}

// Describe attaches a text description and saves the archive in place. An
// empty location describes the archive itself; otherwise the description
// points at the member at that location.
func (a *OmexApp) Describe(archivePath, location, text string) error {
	arch, err := omex.Load(archivePath, a.packer, a.codec, a.logger)
	if err != nil {
		return err
	}
	defer arch.Close()

	about := "."
	if location != "" {
		entry, ok := arch.EntryByLocation(location)
		if !ok {
			return fmt.Errorf("no member at %s in %s", location, archivePath)
		}
		about = entry.Location
	}

	desc := a.newDescription(text)
	desc.SetAbout(about)
	arch.AddDescription(desc)

	return arch.Save(archivePath)
}

// Close releases the resources held by the app.
func (a *OmexApp) Close() error {
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
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
