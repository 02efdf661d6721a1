package profile

import "github.com/roach88/scholar/internal/ir"

// Profile is one validated researcher record from a profile source.
type Profile struct {
	IDGithub          []string `json:"idGithub,omitempty"`
	IDSemScholar      []string `json:"idSemScholar,omitempty"`
	IDOrc             string   `json:"idOrc,omitempty"`
	MetaName          string   `json:"metaName"`
	MetaImageURL      []string `json:"metaImageUrl,omitempty"`
	MetaWebsite       []string `json:"metaWebsite,omitempty"`
	RefPublicationDOI []string `json:"refPublicationDoi,omitempty"`
	Cohort            string   `json:"cohort,omitempty"`
	IsSchmidtFellow   bool     `json:"isSchmidtFellow"`
}

// Identifiers returns one identifier per identifier value on the profile,
// grouped by field in priority order.
func (p Profile) Identifiers() []ir.Identifier {
	var ids []ir.Identifier
	for _, v := range p.IDGithub {
		ids = append(ids, ir.Identifier{Type: ir.FieldGithub, Value: v})
	}
	for _, v := range p.IDSemScholar {
		ids = append(ids, ir.Identifier{Type: ir.FieldSemScholar, Value: v})
	}
	if p.IDOrc != "" {
		ids = append(ids, ir.Identifier{Type: ir.FieldOrc, Value: p.IDOrc})
	}
	return ids
}
