package statement

import "errors"

// Sentinel errors mapping to the VerificationFailure and
// StructuralFailure categories of spec.md §7.
var (
	ErrMalformed          = errors.New("malformed statement")
	ErrVerificationFailed = errors.New("signature verification failed")
	ErrMissingJWKS         = errors.New("statement has no jwks claim")
	ErrUnknownAlgorithm   = errors.New("unsupported signing algorithm")
)
