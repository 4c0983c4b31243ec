package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

const (
	rdfNS     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	dctermsNS = "http://purl.org/dc/terms/"
	vcardNS   = "http://www.w3.org/2006/vcard/ns#"

	xmlHeader = "<?xml version='1.0' encoding='utf-8' standalone='yes'?>\n"
)

// RDFCodec converts between OmexDescription values and the RDF documents
// stored inside archives.
type RDFCodec struct{}

var _ omex.MetadataCodec = (*RDFCodec)(nil)

func NewRDFCodec() *RDFCodec {
	return &RDFCodec{}
}

// rdfFile mirrors the subset of the metadata format this codec understands.
// Unknown elements are ignored.
type rdfFile struct {
	XMLName      xml.Name         `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

// Attribute tags carry no namespace: default xmlns declarations do not
// apply to attributes, so a bare tag matches both rdf:about and about.
type rdfDescription struct {
	About    string       `xml:"about,attr"`
	Text     []string     `xml:"http://purl.org/dc/terms/ description"`
	Creators []rdfCreator `xml:"http://purl.org/dc/terms/ creator"`
	Created  *rdfDate     `xml:"http://purl.org/dc/terms/ created"`
	Modified []rdfDate    `xml:"http://purl.org/dc/terms/ modified"`
}

type rdfCreator struct {
	Name  *rdfName `xml:"http://www.w3.org/2006/vcard/ns# hasName"`
	Email *rdfRef  `xml:"http://www.w3.org/2006/vcard/ns# hasEmail"`
	Org   string   `xml:"http://www.w3.org/2006/vcard/ns# organization-name"`
}

type rdfName struct {
	Family string `xml:"http://www.w3.org/2006/vcard/ns# family-name"`
	Given  string `xml:"http://www.w3.org/2006/vcard/ns# given-name"`
}

type rdfRef struct {
	Resource string `xml:"resource,attr"`
}

type rdfDate struct {
	W3CDTF string `xml:"http://purl.org/dc/terms/ W3CDTF"`
}

// Parse reads every description in the RDF document at path. Descriptions
// carrying no information are dropped. Failures wrap ErrMetadataParse.
func (c *RDFCodec) Parse(path string) ([]omex.Description, error) {
	descs, err := c.parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", omex.ErrMetadataParse, err)
	}
	return descs, nil
}

func (c *RDFCodec) parse(path string) ([]omex.Description, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	var file rdfFile
	if err := xml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var descs []omex.Description
	for _, rd := range file.Descriptions {
		d, err := rd.toDescription()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if d.Empty() {
			continue
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func (rd rdfDescription) toDescription() (*OmexDescription, error) {
	d := NewDescription()
	d.SetAbout(rd.About)
	d.Text = strings.Join(rd.Text, "\n")

	for _, rc := range rd.Creators {
		card := VCard{Organization: rc.Org}
		if rc.Name != nil {
			card.FamilyName = rc.Name.Family
			card.GivenName = rc.Name.Given
		}
		if rc.Email != nil {
			card.Email = rc.Email.Resource
		}
		if !card.Empty() {
			d.Creators = append(d.Creators, card)
		}
	}

	if rd.Created != nil {
		created, err := parseW3CDTF(rd.Created.W3CDTF)
		if err != nil {
			return nil, err
		}
		d.Created = created
	}
	for _, m := range rd.Modified {
		modified, err := parseW3CDTF(m.W3CDTF)
		if err != nil {
			return nil, err
		}
		d.Modified = append(d.Modified, modified)
	}
	return d, nil
}

func parseW3CDTF(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// Document renders d as a standalone RDF document.
func (c *RDFCodec) Document(d omex.Description) ([]byte, error) {
	od, ok := d.(*OmexDescription)
	if !ok {
		return nil, fmt.Errorf("unsupported description type %T", d)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<rdf:RDF xmlns:rdf="` + rdfNS + `" xmlns:dcterms="` + dctermsNS + `" xmlns:vCard="` + vcardNS + `">` + "\n")
	buf.WriteString(`  <rdf:Description rdf:about="` + escape(od.about) + `">` + "\n")

	if od.Text != "" {
		buf.WriteString("    <dcterms:description>" + escape(od.Text) + "</dcterms:description>\n")
	}
	for _, creator := range od.Creators {
		writeCreator(&buf, creator)
	}
	if !od.Created.IsZero() {
		writeDate(&buf, "created", od.Created)
	}
	for _, m := range od.Modified {
		writeDate(&buf, "modified", m)
	}

	buf.WriteString("  </rdf:Description>\n")
	buf.WriteString("</rdf:RDF>\n")
	return buf.Bytes(), nil
}

func writeCreator(buf *bytes.Buffer, creator VCard) {
	buf.WriteString("    <dcterms:creator rdf:parseType=\"Resource\">\n")
	if creator.FamilyName != "" || creator.GivenName != "" {
		buf.WriteString("      <vCard:hasName rdf:parseType=\"Resource\">\n")
		if creator.FamilyName != "" {
			buf.WriteString("        <vCard:family-name>" + escape(creator.FamilyName) + "</vCard:family-name>\n")
		}
		if creator.GivenName != "" {
			buf.WriteString("        <vCard:given-name>" + escape(creator.GivenName) + "</vCard:given-name>\n")
		}
		buf.WriteString("      </vCard:hasName>\n")
	}
	if creator.Email != "" {
		buf.WriteString("      <vCard:hasEmail rdf:resource=\"" + escape(creator.Email) + "\"/>\n")
	}
	if creator.Organization != "" {
		buf.WriteString("      <vCard:organization-name>" + escape(creator.Organization) + "</vCard:organization-name>\n")
	}
	buf.WriteString("    </dcterms:creator>\n")
}

func writeDate(buf *bytes.Buffer, element string, t time.Time) {
	buf.WriteString("    <dcterms:" + element + " rdf:parseType=\"Resource\">\n")
	buf.WriteString("      <dcterms:W3CDTF>" + t.UTC().Format(time.RFC3339) + "</dcterms:W3CDTF>\n")
	buf.WriteString("    </dcterms:" + element + ">\n")
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
