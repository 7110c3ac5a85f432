// Package identity exposes user and role administration over a pluggable
// account store: metadata-driven property editing, paged queries, claim
// management and a uniform result shape consumed by administrative clients.
package identity

import "time"

// DataType tells an administrative client how to render a property.
type DataType int

const (
	DataTypeString DataType = iota
	DataTypeBoolean
	DataTypePassword
	DataTypeEmail
	DataTypeNumber
)

func (d DataType) String() string {
	switch d {
	case DataTypeString:
		return "string"
	case DataTypeBoolean:
		return "boolean"
	case DataTypePassword:
		return "password"
	case DataTypeEmail:
		return "email"
	case DataTypeNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Standard property type keys.
const (
	PropertyUsername    = "username"
	PropertyPassword    = "password"
	PropertyEmail       = "email"
	PropertyPhone       = "phone"
	PropertyTwoFactor   = "two_factor"
	PropertyLocked      = "locked"
	PropertyName        = "name"
	PropertyDescription = "description"
)

// ClaimName is the claim type carrying a user's display name.
const ClaimName = "name"

// User is the account record owned by the account store. The facade only
// holds a reference for the duration of a single call.
type User struct {
	Subject          string    `json:"subject"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Email            string    `json:"email,omitempty"`
	EmailConfirmed   bool      `json:"email_confirmed"`
	Phone            string    `json:"phone,omitempty"`
	PhoneConfirmed   bool      `json:"phone_confirmed"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	LockoutEnabled   bool      `json:"lockout_enabled"`
	LockoutEnd       time.Time `json:"lockout_end,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Locked reports whether the user is locked out at the given instant.
// Lockout is not stored as a flag; it is derived from the lockout end.
func (u *User) Locked(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd.After(now)
}

// Role groups users for authorization purposes.
type Role struct {
	Subject     string    `json:"subject"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Claim is a (type, value) attribute attached to a user.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PropertyValue is the wire form of one attribute read or edit. The value
// is always a string regardless of the property's data type.
type PropertyValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UserSummary is one row of a user query page.
type UserSummary struct {
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// RoleSummary is one row of a role query page.
type RoleSummary struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// UserDetail carries the current value of every update-property plus the
// user's claims when the store supports them.
type UserDetail struct {
	Subject    string          `json:"subject"`
	Properties []PropertyValue `json:"properties"`
	Claims     []Claim         `json:"claims,omitempty"`
}

// RoleDetail carries the current value of every role update-property.
type RoleDetail struct {
	Subject    string          `json:"subject"`
	Properties []PropertyValue `json:"properties"`
}

// CreateResult reports the subject assigned to a freshly created entity.
type CreateResult struct {
	Subject string `json:"subject"`
}

// QueryResult is one page of a filtered, name-ordered collection. Start,
// count and filter echo the request; Total counts the filtered set before
// pagination.
type QueryResult[T any] struct {
	Start  int    `json:"start"`
	Count  int    `json:"count"`
	Total  int    `json:"total"`
	Filter string `json:"filter,omitempty"`
	Items  []T    `json:"items"`
}

// PropertyMetadata is the client-facing view of one descriptor.
type PropertyMetadata struct {
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name"`
	DataType    DataType `json:"data_type"`
	Required    bool     `json:"required"`
}
