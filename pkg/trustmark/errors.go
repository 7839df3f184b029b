package trustmark

import "errors"

var (
	ErrSubjectMismatch  = errors.New("trust mark subject mismatch")
	ErrExpired          = errors.New("trust mark expired")
	ErrIssuerNotInChain = errors.New("trust mark issuer not in chain")
	ErrMissingJWKS      = errors.New("chain statement missing jwks")
	ErrBadSignature     = errors.New("trust mark signature invalid")
	ErrUnknownMark      = errors.New("trust mark not found")
)
