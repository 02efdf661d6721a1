package ir

import "fmt"

// Field names one researcher attribute. The set is closed.
type Field string

const (
	FieldGithub         Field = "idGithub"
	FieldSemScholar     Field = "idSemScholar"
	FieldOrc            Field = "idOrc"
	FieldName           Field = "metaName"
	FieldImageURL       Field = "metaImageUrl"
	FieldWebsite        Field = "metaWebsite"
	FieldPublicationDOI Field = "refPublicationDoi"

	// FieldDOI is the publication namespace. It only appears as the target
	// of a PublicationLinked event and is not a researcher field.
	FieldDOI Field = "idDoi"
)

// IdentifierFields lists the identifier namespaces in priority order.
// Identity matching and Aggregate.Identifier both walk this order.
var IdentifierFields = []Field{FieldGithub, FieldSemScholar, FieldOrc}

// ResearcherFields lists every field a Builder accumulates, in declaration order.
var ResearcherFields = []Field{
	FieldGithub,
	FieldSemScholar,
	FieldOrc,
	FieldName,
	FieldImageURL,
	FieldWebsite,
	FieldPublicationDOI,
}

// IsIdentifier reports whether f is one of the identifier namespaces.
func (f Field) IsIdentifier() bool {
	for _, idf := range IdentifierFields {
		if f == idf {
			return true
		}
	}
	return false
}

// IsResearcherField reports whether f is accumulated by a Builder.
func (f Field) IsResearcherField() bool {
	for _, rf := range ResearcherFields {
		if f == rf {
			return true
		}
	}
	return false
}

// ParseField converts a raw field name into a Field.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if f.IsResearcherField() || f == FieldDOI {
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Identifier is a namespaced external key used for identity matching.
// Equality is exact string equality within the same Type.
type Identifier struct {
	Type  Field  `json:"type"`
	Value string `json:"value"`
}

// String renders the identifier as "type:value".
func (id Identifier) String() string {
	return string(id.Type) + ":" + id.Value
}

// Detail is one fact over the full researcher field set.
type Detail struct {
	Type  Field  `json:"type"`
	Value string `json:"value"`
}

// AsDetail converts an identifier to the equivalent detail.
func (id Identifier) AsDetail() Detail {
	return Detail{Type: id.Type, Value: id.Value}
}
