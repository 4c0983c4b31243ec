package omex

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// ManifestNamespace is the XML namespace of OMEX manifest documents.
const ManifestNamespace = "http://identifiers.org/combine.specifications/omex-manifest"

type manifestXML struct {
	XMLName xml.Name     `xml:"http://identifiers.org/combine.specifications/omex-manifest omexManifest"`
	Content []contentXML `xml:"content"`
}

type contentXML struct {
	Location string `xml:"location,attr"`
	Format   string `xml:"format,attr"`
}

// parseManifest reads the content entries of the manifest document at
// path, in document order.
func parseManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc manifestXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(doc.Content))
	for _, c := range doc.Content {
		entries = append(entries, Entry{Location: c.Location, Format: c.Format})
	}
	return entries, nil
}

// ManifestDocument renders the manifest for the current member list, one
// content element per member in stored order. Locations are normalized to
// their archive-relative "./" form.
func (a *Archive) ManifestDocument() []byte {
	return a.manifestFor(a.entries)
}

func (a *Archive) manifestFor(entries []Entry) []byte {
	var buf bytes.Buffer
	buf.WriteString("<?xml version='1.0' encoding='utf-8' standalone='yes'?>\n")
	buf.WriteString(`<omexManifest xmlns="` + ManifestNamespace + "\">\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "  <content location=\"%s\" format=\"%s\"/>\n",
			xmlEscape(a.normalizeLocation(e.Location)), xmlEscape(e.Format))
	}
	buf.WriteString("</omexManifest>\n")
	return buf.Bytes()
}

// normalizeLocation rewrites a staged location into its archive-relative
// "./" form. The steps run in a fixed order and the collapsing steps
// repeat until they reach a fixed point, so normalizing an already
// normalized location changes nothing.
func (a *Archive) normalizeLocation(location string) string {
	if a.stagingDir != "" {
		location = strings.ReplaceAll(location, a.stagingDir+"/", "./")
	}
	for strings.Contains(location, "././") {
		location = strings.ReplaceAll(location, "././", "./")
	}
	for strings.Contains(location, `./\`) {
		location = strings.ReplaceAll(location, `./\`, "./")
	}
	return location
}

// xmlEscape escapes s for use inside a double-quoted XML attribute.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
