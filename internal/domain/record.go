package domain

import "encoding/json"

// Field length limits applied before validation.
const (
	MaxIDLength    = 64
	MaxLabelLength = 120
	MaxLinkLength  = 2048
	MaxImageLength = 2048
)

// Record is a validated catalog entry rendered as a card.
//
// Fields are unexported: the only way to obtain a Record is through
// ValidateRecord, so a partially populated Record never reaches the
// collection.
type Record struct {
	id             string
	label          string
	link           string
	imageReference string
}

func (r Record) ID() string             { return r.id }
func (r Record) Label() string          { return r.label }
func (r Record) Link() string           { return r.link }
func (r Record) ImageReference() string { return r.imageReference }

// IsZero reports whether r is the zero Record (never produced by validation).
func (r Record) IsZero() bool { return r.id == "" }

// Draft returns an editable copy of the record.
func (r Record) Draft() Draft {
	return Draft{
		ID:             r.id,
		Label:          r.label,
		Link:           r.link,
		ImageReference: r.imageReference,
	}
}

type recordJSON struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Link           string `json:"link"`
	ImageReference string `json:"imageReference"`
}

// MarshalJSON encodes the record with its public field names.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:             r.id,
		Label:          r.label,
		Link:           r.link,
		ImageReference: r.imageReference,
	})
}

// Draft is the free-form form state. Any field may be invalid at any time.
type Draft struct {
	ID             string `json:"id" yaml:"id"`
	Label          string `json:"label" yaml:"label"`
	Link           string `json:"link" yaml:"link"`
	ImageReference string `json:"imageReference" yaml:"imageReference"`
}

// IsEmpty reports whether every draft field is blank.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// Document is a raw document as returned by a document store, before any
// validation. Fields holds the decoded document body.
type Document struct {
	ID     string
	Fields map[string]any
}

// StringField returns the named field when it is a string.
func (d Document) StringField(name string) string {
	if d.Fields == nil {
		return ""
	}
	s, _ := d.Fields[name].(string)
	return s
}
