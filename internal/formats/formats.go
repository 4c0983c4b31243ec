package formats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownFormat is returned by Resolve for aliases not in the table.
// Callers should use errors.Is to match it.
var ErrUnknownFormat = errors.New("unknown format alias")

const (
	combineBase = "http://identifiers.org/combine.specifications/"
	mediaBase   = "http://purl.org/NET/mediatypes/"
)

// registry maps short format aliases to canonical format identifiers.
// It is initialized once and never mutated.
var registry = map[string]string{
	"manifest": combineBase + "omex-manifest",
	"metadata": combineBase + "omex-metadata",
	"omex":     combineBase + "omex",
	"sbml":     combineBase + "sbml",
	"sedml":    combineBase + "sed-ml",
	"cellml":   combineBase + "cellml",
	"sbgn":     combineBase + "sbgn",
	"sbol":     combineBase + "sbol",
	"xml":      mediaBase + "application/xml",
	"csv":      mediaBase + "text/csv",
	"txt":      mediaBase + "text/plain",
	"pdf":      mediaBase + "application/pdf",
	"png":      mediaBase + "image/png",
	"svg":      mediaBase + "image/svg+xml",
	"md":       mediaBase + "text/markdown",
}

// Resolve translates a short format alias into its canonical identifier.
// Lookup is case-insensitive. Fails with ErrUnknownFormat for aliases not
// in the table.
func Resolve(alias string) (string, error) {
	id, ok := registry[strings.ToLower(alias)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, alias)
	}
	return id, nil
}

// Equivalent reports whether a and b denote the same format, comparing the
// literal values and each side's resolved form. A side that does not
// resolve is simply not equivalent; the lookup error is never surfaced.
func Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	if id, err := Resolve(a); err == nil && id == b {
		return true
	}
	if id, err := Resolve(b); err == nil && a == id {
		return true
	}
	return false
}

// Alias pairs a short format name with its canonical identifier.
type Alias struct {
	Name       string
	Identifier string
}

// Known returns every alias in the table, sorted by name.
func Known() []Alias {
	out := make([]Alias, 0, len(registry))
	for name, id := range registry {
		out = append(out, Alias{Name: name, Identifier: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
