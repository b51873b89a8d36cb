package testmodels

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// User is the record of the email/name example: an exact partition key,
// a capped prefix index on name and a compound index over both.
type User struct {
	// Required: true
	Email string `json:"email"`

	// Name of the user.
	// Required: true
	Name string `json:"name"`

	// Age is stored in plaintext.
	Age int64 `json:"age,omitempty"`

	// Format: date-time
	CreatedAt strfmt.DateTime `json:"createdAt"`

	// Temp is never stored and decodes to its default.
	Temp string `json:"-"`
}

// UserType returns the User schema. name has a prefix cap of 4.
func UserType() *registry.RecordType {
	return registry.NewRecordType("User").
		PartitionKey("email").
		Field("email", registry.String, registry.Exact(), registry.ExactIn("email#name")).
		Field("name", registry.String, registry.Prefix(), registry.Cap(4), registry.PrefixIn("email#name")).
		Field("age", registry.Int, registry.Plaintext()).
		Field("createdAt", registry.DateTime).
		Field("temp", registry.String, registry.Skipped(), registry.Default("")).
		MustBuild()
}

func (u User) RecordTypeName() string { return "User" }

func (u User) ToValues() registry.Values {
	return registry.Values{
		"email":     u.Email,
		"name":      u.Name,
		"age":       u.Age,
		"createdAt": u.CreatedAt,
	}
}

func (u *User) FromValues(v registry.Values) error {
	u.Email, _ = v["email"].(string)
	u.Name, _ = v["name"].(string)
	u.Age, _ = v["age"].(int64)
	u.CreatedAt, _ = v["createdAt"].(strfmt.DateTime)
	u.Temp, _ = v["temp"].(string)
	return nil
}

// NewUser returns a user created at a fixed instant.
func NewUser(email, name string) User {
	return User{
		Email:     email,
		Name:      name,
		Age:       30,
		CreatedAt: strfmt.DateTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
}
