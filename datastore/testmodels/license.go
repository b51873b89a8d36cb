package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// License shares a partition with the User of the same email and is
// addressed by a dynamic sort key on its number.
type License struct {
	// Required: true
	Email string `json:"email"`

	// Required: true
	Number string `json:"number"`

	// Jurisdiction is indexed for exact lookups.
	Jurisdiction string `json:"jurisdiction"`

	// Format: date-time
	ExpiresAt *strfmt.DateTime `json:"expiresAt,omitempty"`
}

// LicenseType returns the License schema.
func LicenseType() *registry.RecordType {
	return registry.NewRecordType("License").
		SortKeyPrefix("lic").
		PartitionKey("email").
		SortKey("number").
		Field("email", registry.String).
		Field("number", registry.String, registry.KeyOnly()).
		Field("jurisdiction", registry.String, registry.Exact()).
		Field("expiresAt", registry.DateTime).
		MustBuild()
}

func (l License) RecordTypeName() string { return "License" }

func (l License) ToValues() registry.Values {
	v := registry.Values{
		"email":        l.Email,
		"number":       l.Number,
		"jurisdiction": l.Jurisdiction,
		"expiresAt":    nil,
	}
	if l.ExpiresAt != nil {
		v["expiresAt"] = *l.ExpiresAt
	}
	return v
}

func (l *License) FromValues(v registry.Values) error {
	l.Email, _ = v["email"].(string)
	l.Number, _ = v["number"].(string)
	l.Jurisdiction, _ = v["jurisdiction"].(string)
	if dt, ok := v["expiresAt"].(strfmt.DateTime); ok {
		l.ExpiresAt = &dt
	} else {
		l.ExpiresAt = nil
	}
	return nil
}
