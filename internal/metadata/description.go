// Package metadata reads and writes the descriptive annotations carried
// alongside archive members: free text, authorship and timestamps, stored
// as RDF with Dublin Core terms and vCard blocks.
package metadata

import (
	"strings"
	"time"

	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

// VCard identifies one creator of an archive member.
type VCard struct {
	FamilyName   string
	GivenName    string
	Email        string
	Organization string
}

func (v VCard) Empty() bool {
	return v.FamilyName == "" && v.GivenName == "" && v.Email == "" && v.Organization == ""
}

// String renders the card in a single line, eg "Ada Lemon <ada@example.org>".
func (v VCard) String() string {
	var parts []string
	if name := strings.TrimSpace(v.GivenName + " " + v.FamilyName); name != "" {
		parts = append(parts, name)
	}
	if v.Email != "" {
		parts = append(parts, "<"+v.Email+">")
	}
	if v.Organization != "" {
		parts = append(parts, "("+v.Organization+")")
	}
	return strings.Join(parts, " ")
}

// OmexDescription annotates a single archive member, addressed by its
// location within the archive.
type OmexDescription struct {
	about string

	Text     string
	Creators []VCard
	Created  time.Time
	Modified []time.Time
}

var _ omex.Description = (*OmexDescription)(nil)

func NewDescription() *OmexDescription {
	return &OmexDescription{}
}

func (d *OmexDescription) About() string { return d.about }

func (d *OmexDescription) SetAbout(about string) { d.about = about }

// Empty reports whether the description carries no information worth
// writing out.
func (d *OmexDescription) Empty() bool {
	if d.Text != "" || len(d.Modified) > 0 || !d.Created.IsZero() {
		return false
	}
	for _, c := range d.Creators {
		if !c.Empty() {
			return false
		}
	}
	return true
}
