package domain

import "fmt"

// Error types for consistent error handling across the aggregator.
// Fatal errors (configuration, store lifecycle) abort a run; relationship
// errors are caught at the relationship boundary and logged.

// ErrDuplicateRelationship indicates two relationships share a name, which
// would make the secret namespace and calculated-provider lookups ambiguous.
type ErrDuplicateRelationship struct {
	Names []string
}

func (e *ErrDuplicateRelationship) Error() string {
	return fmt.Sprintf("duplicate relationship names: %v; to re-use a provider, give each relationship a distinct name", e.Names)
}

// ErrUnknownProvider indicates a configured provider identifier has no
// registered implementation.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Provider)
}

// ErrStoreClosed indicates a balance store operation before Open (or a Close
// before Open).
type ErrStoreClosed struct {
	Operation string
}

func (e *ErrStoreClosed) Error() string {
	return fmt.Sprintf("balance store not open: %s", e.Operation)
}

// ErrSecretNotFound indicates a secret could not be resolved and no
// interactive fallback was available.
type ErrSecretNotFound struct {
	Key string
}

func (e *ErrSecretNotFound) Error() string {
	return fmt.Sprintf("secret not found: %s", e.Key)
}

// ErrNotLoggedIn indicates a provider operation that requires a prior
// successful Login.
type ErrNotLoggedIn struct {
	Institution string
}

func (e *ErrNotLoggedIn) Error() string {
	return fmt.Sprintf("%s: not logged in yet", e.Institution)
}

// ErrRelationship tags a failure with the relationship it occurred in. The
// orchestrator logs these and continues with the next relationship.
type ErrRelationship struct {
	Relationship string
	Phase        string
	Err          error
}

func (e *ErrRelationship) Error() string {
	return fmt.Sprintf("[%s] %s failed: %v", e.Relationship, e.Phase, e.Err)
}

func (e *ErrRelationship) Unwrap() error {
	return e.Err
}

// ErrValidation indicates invalid configuration input.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}
