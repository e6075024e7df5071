package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation a required input field was empty or malformed
	ErrValidation = errors.New("invalid input")

	// ErrAuthentication the master password is wrong, or the vault blob could
	// not be decrypted. The two cases are indistinguishable by design.
	ErrAuthentication = errors.New("invalid master password")

	// ErrNotFound no record matched the given ID or service
	ErrNotFound = errors.New("no matching record")

	// ErrPersistence the re-encrypted vault could not be durably written. The
	// caller must treat the outcome of the mutation as unknown.
	ErrPersistence = errors.New("failed to persist vault")

	// ErrSessionClosed the session has already been closed
	ErrSessionClosed = errors.New("session is closed")
)

// Candidate one possible match for an ambiguous service selector. It carries
// everything needed to re-prompt with a specific ID, but never the password.
type Candidate struct {
	// ID record ID
	ID uint `json:"id"`
	// Service service name
	Service string `json:"service"`
	// Username account name
	Username string `json:"username"`
	// Notes record notes
	Notes string `json:"notes"`
}

// AmbiguousMatchError a service selector resolved to more than one record.
//
// The full candidate list is carried so the presentation layer can offer a
// choice; the core never picks one silently.
type AmbiguousMatchError struct {
	// Service the service name that was queried
	Service string
	// Candidates the matching records, passwords omitted
	Candidates []Candidate
}

// Error implement error
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf(
		"%d records match service '%s', select one by ID", len(e.Candidates), e.Service,
	)
}
