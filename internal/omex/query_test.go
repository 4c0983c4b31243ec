package omex

import (
	"testing"
)

const sbmlIdentifier = "http://identifiers.org/combine.specifications/sbml"

func TestEntriesWithFormat(t *testing.T) {
	a := New(&fakePacker{}, &fakeCodec{}, "", nil)
	a.entries = []Entry{
		{Location: "a.xml", Format: sbmlIdentifier},
		{Location: "b.xml", Format: "sbml"},
		{Location: "c.xml", Format: "http://identifiers.org/combine.specifications/sed-ml"},
	}

	t.Run("alias matches literal and canonical members", func(t *testing.T) {
		got := a.EntriesWithFormat("sbml")
		if len(got) != 2 {
			t.Fatalf("EntriesWithFormat(sbml) returned %d entries, want 2: %+v", len(got), got)
		}
		if got[0].Location != "a.xml" || got[1].Location != "b.xml" {
			t.Errorf("EntriesWithFormat(sbml) = %+v", got)
		}
	})

	// Resolution applies to the query only: asking for the full identifier
	// does not pull in members stored under the short name.
	t.Run("identifier does not match alias members", func(t *testing.T) {
		got := a.EntriesWithFormat(sbmlIdentifier)
		if len(got) != 1 || got[0].Location != "a.xml" {
			t.Errorf("EntriesWithFormat(identifier) = %+v, want only a.xml", got)
		}
	})

	t.Run("unknown format matches literally", func(t *testing.T) {
		a := New(&fakePacker{}, &fakeCodec{}, "", nil)
		a.entries = []Entry{{Location: "x.bin", Format: "custom-format"}}
		if got := a.EntriesWithFormat("custom-format"); len(got) != 1 {
			t.Errorf("EntriesWithFormat(custom-format) = %+v", got)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		if got := a.EntriesWithFormat("cellml"); len(got) != 0 {
			t.Errorf("EntriesWithFormat(cellml) = %+v, want none", got)
		}
	})
}

func TestCountWithFormat(t *testing.T) {
	a := New(&fakePacker{}, &fakeCodec{}, "", nil)
	a.entries = []Entry{
		{Location: "a.xml", Format: sbmlIdentifier},
		{Location: "b.xml", Format: "sbml"},
	}

	if got := a.CountWithFormat("sbml"); got != 2 {
		t.Errorf("CountWithFormat(sbml) = %d, want 2", got)
	}
	if !a.HasEntriesWithFormat("sbml") {
		t.Error("HasEntriesWithFormat(sbml) = false")
	}
	if a.HasEntriesWithFormat("cellml") {
		t.Error("HasEntriesWithFormat(cellml) = true")
	}
}

func TestFilesWithFormat(t *testing.T) {
	a := New(&fakePacker{}, &fakeCodec{}, "", nil)
	a.stagingDir = "/stage"
	a.entries = []Entry{
		{Location: "model.xml", Format: "sbml"},
		{Location: "http://models.example.org/remote.xml", Format: "sbml"},
	}

	got := a.FilesWithFormat("sbml")
	if len(got) != 1 {
		t.Fatalf("FilesWithFormat = %v, want one local file", got)
	}
	if got[0] != "/stage/model.xml" {
		t.Errorf("local file = %q, want /stage/model.xml", got[0])
	}
}

func TestEntryByLocation(t *testing.T) {
	a := New(&fakePacker{}, &fakeCodec{}, "", nil)
	a.stagingDir = "/stage"
	a.entries = []Entry{{Location: "/stage/model.xml", Format: "sbml"}}

	e, ok := a.EntryByLocation("./model.xml")
	if !ok || e.Format != "sbml" {
		t.Errorf("EntryByLocation = %+v, ok = %v", e, ok)
	}
	if _, ok := a.EntryByLocation("./other.xml"); ok {
		t.Error("EntryByLocation found a nonexistent member")
	}
}

func TestLocalFile(t *testing.T) {
	a := New(&fakePacker{}, &fakeCodec{}, "", nil)
	a.stagingDir = "/stage"

	if got, ok := a.LocalFile(Entry{Location: "./model.xml"}); !ok || got != "/stage/model.xml" {
		t.Errorf("LocalFile = %q, ok = %v", got, ok)
	}
	if _, ok := a.LocalFile(Entry{Location: "http://example.org/m.xml"}); ok {
		t.Error("LocalFile resolved a remote member")
	}
}

func TestIsRemote(t *testing.T) {
	if !(Entry{Location: "https://example.org/m.xml"}).IsRemote() {
		t.Error("https location not treated as remote")
	}
	if (Entry{Location: "./m.xml"}).IsRemote() {
		t.Error("relative location treated as remote")
	}
}
