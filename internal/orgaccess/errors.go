package orgaccess

import "errors"

var (
	// ErrInvalidInput marks malformed arguments from the caller.
	ErrInvalidInput = errors.New("orgaccess: invalid input")
	// ErrNotFound marks missing reference data: an unknown stakeholder or a
	// permission mnemocode absent from the catalog. Mnemocodes are compiled
	// into calling code, so hitting this is a defect, not a denial.
	ErrNotFound = errors.New("orgaccess: not found")
	// ErrInvariant marks data corruption detected during resolution, such as
	// a cross-tenant parent reference or an employment attached to neither
	// unit nor trading point. Resolutions fail fast rather than return a
	// partial scope.
	ErrInvariant = errors.New("orgaccess: data invariant violated")
)
