package pack

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPackUnpackRoundTrip(t *testing.T) {
	workDir := t.TempDir()
	baseDir := filepath.Join(workDir, "base")
	files := []string{
		writeFile(t, baseDir, "manifest.xml", "<omexManifest/>"),
		writeFile(t, baseDir, "model.xml", "<sbml/>"),
		writeFile(t, baseDir, filepath.Join("data", "points.csv"), "1,2,3"),
	}

	packer := NewZipPacker(filepath.Join(workDir, "staging"))
	archivePath := filepath.Join(workDir, "out.omex")
	if err := packer.Pack(archivePath, files, baseDir); err != nil {
		t.Fatalf("Pack returned error: %v", err)
	}

	dir, err := packer.Unpack(archivePath)
	if err != nil {
		t.Fatalf("Unpack returned error: %v", err)
	}
	defer os.RemoveAll(dir)

	for name, want := range map[string]string{
		"manifest.xml":    "<omexManifest/>",
		"model.xml":       "<sbml/>",
		"data/points.csv": "1,2,3",
	} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("member %s missing: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("member %s = %q, want %q", name, got, want)
		}
	}
}

func TestUnpackMissingArchive(t *testing.T) {
	packer := NewZipPacker(t.TempDir())
	_, err := packer.Unpack(filepath.Join(t.TempDir(), "absent.omex"))
	if !errors.Is(err, omex.ErrUnpack) {
		t.Fatalf("Unpack error = %v, want ErrUnpack", err)
	}
}

func TestUnpackRejectsEscapingMembers(t *testing.T) {
	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "evil.omex")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("boom")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	stagingRoot := filepath.Join(workDir, "staging")
	packer := NewZipPacker(stagingRoot)
	if _, err := packer.Unpack(archivePath); !errors.Is(err, omex.ErrUnpack) {
		t.Fatalf("Unpack error = %v, want ErrUnpack", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "evil.txt")); !os.IsNotExist(err) {
		t.Error("escaping member was written outside the staging directory")
	}

	// The partially extracted staging directory is cleaned up.
	leftovers, err := os.ReadDir(stagingRoot)
	if err == nil && len(leftovers) != 0 {
		t.Errorf("staging root still holds %d directories", len(leftovers))
	}
}

func TestPackMissingFile(t *testing.T) {
	workDir := t.TempDir()
	packer := NewZipPacker(workDir)

	archivePath := filepath.Join(workDir, "out.omex")
	err := packer.Pack(archivePath, []string{filepath.Join(workDir, "absent.xml")}, workDir)
	if !errors.Is(err, omex.ErrPack) {
		t.Fatalf("Pack error = %v, want ErrPack", err)
	}
	if _, statErr := os.Stat(archivePath); !os.IsNotExist(statErr) {
		t.Error("failed pack left an archive behind")
	}
}

func TestPackReplacesExistingArchive(t *testing.T) {
	workDir := t.TempDir()
	baseDir := filepath.Join(workDir, "base")
	file := writeFile(t, baseDir, "model.xml", "<sbml/>")

	archivePath := filepath.Join(workDir, "out.omex")
	if err := os.WriteFile(archivePath, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	packer := NewZipPacker(filepath.Join(workDir, "staging"))
	if err := packer.Pack(archivePath, []string{file}, baseDir); err != nil {
		t.Fatalf("Pack returned error: %v", err)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("packed archive is not a valid zip: %v", err)
	}
	defer reader.Close()
	if len(reader.File) != 1 || reader.File[0].Name != "model.xml" {
		t.Errorf("archive members = %+v", reader.File)
	}
}

func TestPackRejectsFilesOutsideBase(t *testing.T) {
	workDir := t.TempDir()
	baseDir := filepath.Join(workDir, "base")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		t.Fatal(err)
	}
	outside := writeFile(t, workDir, "outside.txt", "x")

	packer := NewZipPacker(workDir)
	err := packer.Pack(filepath.Join(workDir, "out.omex"), []string{outside}, baseDir)
	if !errors.Is(err, omex.ErrPack) {
		t.Fatalf("Pack error = %v, want ErrPack", err)
	}
}
