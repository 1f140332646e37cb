// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller input. It is surfaced immediately
// and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// TransportError reports a provider that was unreachable, timed out, rejected
// credentials or exceeded its quota.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaValidationError reports generative output that does not conform to
// the requested schema. Path locates the offending field ("niches[2].name").
type SchemaValidationError struct {
	Schema string
	Path   string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema %s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("schema %s: %s: %s", e.Schema, e.Path, e.Reason)
}

// PartialDomainFailure records one failed iteration of a multi-domain loop.
// The stage omits that iteration's contribution and continues.
type PartialDomainFailure struct {
	Stage  string
	Domain string
	Err    error
}

func (e *PartialDomainFailure) Error() string {
	return fmt.Sprintf("%s: domain %q skipped: %v", e.Stage, e.Domain, e.Err)
}

func (e *PartialDomainFailure) Unwrap() error { return e.Err }

// PersistenceError reports an artifact write that failed after the report
// was already synthesized. The report itself remains valid.
type PersistenceError struct {
	Kind    ArtifactKind
	Subject string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s report for %q: %v", e.Kind, e.Subject, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsSchema reports whether err carries a SchemaValidationError.
func IsSchema(err error) bool {
	var se *SchemaValidationError
	return errors.As(err, &se)
}
