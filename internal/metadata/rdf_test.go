package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

func writeMetadata(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.rdf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDescriptionRoundTrip(t *testing.T) {
	codec := NewRDFCodec()

	original := NewDescription()
	original.SetAbout("./model.xml")
	original.Text = "kinetic model of the lac operon"
	original.Creators = []VCard{
		{FamilyName: "Lemon", GivenName: "Ada", Email: "ada@example.org", Organization: "Example Institute"},
		{FamilyName: "Stone", GivenName: "Basil"},
	}
	original.Created = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	original.Modified = []time.Time{
		time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 17, 45, 12, 0, time.UTC),
	}

	doc, err := codec.Document(original)
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	path := writeMetadata(t, string(doc))

	parsed, err := codec.Parse(path)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("Parse returned %d descriptions, want 1", len(parsed))
	}

	got, ok := parsed[0].(*OmexDescription)
	if !ok {
		t.Fatalf("parsed description has type %T", parsed[0])
	}
	if got.About() != "./model.xml" {
		t.Errorf("About() = %q, want ./model.xml", got.About())
	}
	if got.Text != original.Text {
		t.Errorf("Text = %q, want %q", got.Text, original.Text)
	}
	if len(got.Creators) != 2 {
		t.Fatalf("Creators = %+v, want 2 entries", got.Creators)
	}
	if got.Creators[0] != original.Creators[0] {
		t.Errorf("first creator = %+v, want %+v", got.Creators[0], original.Creators[0])
	}
	if got.Creators[1].FamilyName != "Stone" || got.Creators[1].Email != "" {
		t.Errorf("second creator = %+v", got.Creators[1])
	}
	if !got.Created.Equal(original.Created) {
		t.Errorf("Created = %v, want %v", got.Created, original.Created)
	}
	if len(got.Modified) != 2 || !got.Modified[1].Equal(original.Modified[1]) {
		t.Errorf("Modified = %v, want %v", got.Modified, original.Modified)
	}
}

func TestParseHandWrittenDocument(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<RDF xmlns="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
     xmlns:dc="http://purl.org/dc/terms/"
     xmlns:v="http://www.w3.org/2006/vcard/ns#">
  <Description about="./model.xml">
    <dc:description>a model</dc:description>
    <dc:creator>
      <v:hasName>
        <v:family-name>Curie</v:family-name>
        <v:given-name>Irene</v:given-name>
      </v:hasName>
      <v:hasEmail resource="irene@example.org"/>
    </dc:creator>
    <dc:created>
      <dc:W3CDTF>2023-06-01T12:00:00Z</dc:W3CDTF>
    </dc:created>
    <unrelated>ignored</unrelated>
  </Description>
  <Description about="./sim.xml">
    <dc:description>a simulation</dc:description>
  </Description>
</RDF>
`
	codec := NewRDFCodec()
	parsed, err := codec.Parse(writeMetadata(t, doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("Parse returned %d descriptions, want 2", len(parsed))
	}

	first := parsed[0].(*OmexDescription)
	if first.About() != "./model.xml" || first.Text != "a model" {
		t.Errorf("first description = about %q text %q", first.About(), first.Text)
	}
	if len(first.Creators) != 1 || first.Creators[0].Email != "irene@example.org" {
		t.Errorf("first creators = %+v", first.Creators)
	}
	if first.Created.IsZero() {
		t.Error("created date missing")
	}

	second := parsed[1].(*OmexDescription)
	if second.About() != "./sim.xml" || second.Text != "a simulation" {
		t.Errorf("second description = about %q text %q", second.About(), second.Text)
	}
}

func TestParseSkipsEmptyDescriptions(t *testing.T) {
	doc := `<RDF xmlns="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <Description about="./model.xml"/>
</RDF>
`
	codec := NewRDFCodec()
	parsed, err := codec.Parse(writeMetadata(t, doc))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(parsed) != 0 {
		t.Errorf("Parse returned %d descriptions, want none", len(parsed))
	}
}

func TestParseFailures(t *testing.T) {
	codec := NewRDFCodec()

	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "certainly not rdf"},
		{"wrong root", `<notRDF xmlns="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>`},
		{"bad date", `<RDF xmlns="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:dc="http://purl.org/dc/terms/">
  <Description about="./m.xml">
    <dc:created><dc:W3CDTF>yesterday</dc:W3CDTF></dc:created>
  </Description>
</RDF>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Parse(writeMetadata(t, tt.doc))
			if !errors.Is(err, omex.ErrMetadataParse) {
				t.Fatalf("Parse error = %v, want ErrMetadataParse", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := codec.Parse(filepath.Join(t.TempDir(), "absent.rdf"))
		if !errors.Is(err, omex.ErrMetadataParse) {
			t.Fatalf("Parse error = %v, want ErrMetadataParse", err)
		}
	})
}

func TestDocumentEscapesContent(t *testing.T) {
	codec := NewRDFCodec()
	d := NewDescription()
	d.SetAbout(`./odd "name".xml`)
	d.Text = "uses <tags> & ampersands"

	doc, err := codec.Document(d)
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	if strings.Contains(string(doc), "uses <tags>") {
		t.Errorf("text not escaped:\n%s", doc)
	}
	if !strings.Contains(string(doc), "&amp; ampersands") {
		t.Errorf("ampersand not escaped:\n%s", doc)
	}
}

func TestDocumentUnsupportedType(t *testing.T) {
	codec := NewRDFCodec()
	if _, err := codec.Document(otherDescription{}); err == nil {
		t.Fatal("Document accepted a foreign description type")
	}
}

type otherDescription struct{}

func (otherDescription) About() string   { return "" }
func (otherDescription) SetAbout(string) {}
func (otherDescription) Empty() bool     { return true }

func TestDescriptionEmpty(t *testing.T) {
	tests := []struct {
		name string
		d    *OmexDescription
		want bool
	}{
		{"zero value", NewDescription(), true},
		{"with text", &OmexDescription{Text: "x"}, false},
		{"with creator", &OmexDescription{Creators: []VCard{{FamilyName: "Lemon"}}}, false},
		{"with empty creator only", &OmexDescription{Creators: []VCard{{}}}, true},
		{"with created date", &OmexDescription{Created: time.Now()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVCardString(t *testing.T) {
	card := VCard{FamilyName: "Lemon", GivenName: "Ada", Email: "ada@example.org", Organization: "Example Institute"}
	want := "Ada Lemon <ada@example.org> (Example Institute)"
	if got := card.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if got := (VCard{Email: "x@y.z"}).String(); got != "<x@y.z>" {
		t.Errorf("String() = %q, want just the email", got)
	}
}
