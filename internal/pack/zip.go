// Package pack moves archives between their packed zip form and a staging
// directory on disk.
package pack

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

// ZipPacker reads and writes zip containers. Unpacked archives land in
// fresh directories under stagingRoot.
type ZipPacker struct {
	stagingRoot string
}

var _ omex.Packer = (*ZipPacker)(nil)

func NewZipPacker(stagingRoot string) *ZipPacker {
	return &ZipPacker{stagingRoot: stagingRoot}
}

// Unpack extracts archivePath into a new staging directory and returns its
// path. Member names that would escape the directory are rejected.
func (p *ZipPacker) Unpack(archivePath string) (string, error) {
	dir, err := p.unpack(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", omex.ErrUnpack, err)
	}
	return dir, nil
}

func (p *ZipPacker) unpack(archivePath string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	if p.stagingRoot != "" {
		if err := os.MkdirAll(p.stagingRoot, 0755); err != nil {
			return "", fmt.Errorf("creating staging root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(p.stagingRoot, "omex-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	for _, file := range reader.File {
		if err := extractFile(dir, file); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

func extractFile(dir string, file *zip.File) error {
	target := filepath.Join(dir, filepath.FromSlash(file.Name))
	if !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return fmt.Errorf("archive member %q escapes the staging directory", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", file.Name, err)
	}

	in, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening archive member %s: %w", file.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", file.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}

// Pack writes files into a zip at archivePath. Member names are the file
// paths relative to baseDir, slash separated. The archive is written to a
// temporary file first so a failed pack never clobbers an existing one.
func (p *ZipPacker) Pack(archivePath string, files []string, baseDir string) error {
	if err := p.pack(archivePath, files, baseDir); err != nil {
		return fmt.Errorf("%w: %v", omex.ErrPack, err)
	}
	return nil
}

func (p *ZipPacker) pack(archivePath string, files []string, baseDir string) error {
	tmp, err := os.CreateTemp(filepath.Dir(archivePath), ".omex-pack-")
	if err != nil {
		return fmt.Errorf("creating temporary archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeZip(tmp, files, baseDir); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary archive: %w", err)
	}

	if err := os.Rename(tmpName, archivePath); err != nil {
		return fmt.Errorf("moving archive into place: %w", err)
	}
	return nil
}

func writeZip(w io.Writer, files []string, baseDir string) error {
	zw := zip.NewWriter(w)
	for _, file := range files {
		rel, err := filepath.Rel(baseDir, file)
		if err != nil {
			return fmt.Errorf("resolving member name for %s: %w", file, err)
		}
		if strings.HasPrefix(rel, "..") {
			return fmt.Errorf("file %s lies outside the staging directory", file)
		}
		if err := addMember(zw, filepath.ToSlash(rel), file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

func addMember(zw *zip.Writer, name, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	out, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding member %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("writing member %s: %w", name, err)
	}
	return nil
}
