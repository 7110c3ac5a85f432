package identity

import (
	"errors"
	"strings"
)

// Sentinel errors. ErrNotFound flows between the store and the facade; the
// remaining sentinels are configuration or contract violations reported on
// the error channel of a facade call, never inside a Result.
var (
	ErrNotFound          = errors.New("identity: not found")
	ErrUnknownProperty   = errors.New("identity: unknown property type")
	ErrDuplicateProperty = errors.New("identity: duplicate property type")
	ErrMissingRequired   = errors.New("identity: required property missing")
	ErrRolesUnsupported  = errors.New("identity: role operations are not supported")
	ErrClaimsUnsupported = errors.New("identity: claim operations are not supported")
)

// invalidSubject is the verbatim failure reported when a delete or update
// names a subject the store does not know.
const invalidSubject = "Invalid subject"

// StoreError carries human-readable error descriptions reported by the
// account store. The facade surfaces the descriptions to callers verbatim.
type StoreError struct {
	Descriptions []string
}

func (e *StoreError) Error() string {
	return "identity: store rejected operation: " + strings.Join(e.Descriptions, "; ")
}

// NewStoreError builds a StoreError from the store's own descriptions.
func NewStoreError(descriptions ...string) *StoreError {
	return &StoreError{Descriptions: descriptions}
}

// failureStrings flattens an error into Result error descriptions,
// preserving store-reported text unmodified.
func failureStrings(err error) []string {
	var se *StoreError
	if errors.As(err, &se) && len(se.Descriptions) > 0 {
		return se.Descriptions
	}
	return []string{err.Error()}
}
