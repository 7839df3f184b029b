package trustmark

import (
	"github.com/jonboulle/clockwork"

	"github.com/SUNET/go-federation/pkg/statement"
)

// Validation is one element of the list spec.md §4.8's validate
// returns: one verdict per Trust Mark found in an Entity
// Configuration's trust_marks claim.
type Validation struct {
	ID      string
	Issuer  string
	Subject string
	Valid   bool
	Reason  string
}

func invalidResult(id, issuer, subject, reason string) Validation {
	return Validation{ID: id, Issuer: issuer, Subject: subject, Valid: false, Reason: reason}
}

// Validator checks Trust Marks embedded in an Entity Configuration
// against the chain of statements a Trust Chain Resolver produced,
// per spec.md §4.8's 7-step algorithm.
type Validator struct {
	clock clockwork.Clock
}

// NewValidator builds a Validator. clock defaults to
// clockwork.NewRealClock() if nil; tests pass clockwork.NewFakeClock()
// for deterministic exp-boundary assertions.
func NewValidator(clock clockwork.Clock) *Validator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Validator{clock: clock}
}

// Validate checks every Trust Mark JWT string in trustMarkJWTs against
// expectedSubject and chainStatements (the output of a Resolver run),
// returning one Validation per input mark.
func (v *Validator) Validate(trustMarkJWTs []string, expectedSubject string, chainStatements []statement.Statement) []Validation {
	out := make([]Validation, 0, len(trustMarkJWTs))
	for _, jwtStr := range trustMarkJWTs {
		out = append(out, v.validateOne(jwtStr, expectedSubject, chainStatements))
	}
	return out
}

func (v *Validator) validateOne(jwtStr, expectedSubject string, chainStatements []statement.Statement) Validation {
	// Step 1: parse claims without verifying — the signing key is only
	// known once we've located the issuer's statement in the chain.
	claims, err := unverifiedClaims(jwtStr)
	if err != nil {
		return invalidResult("", "", "", "malformed trust mark: "+err.Error())
	}
	id := statement.StringClaim(claims, "id")
	iss := statement.StringClaim(claims, "iss")
	sub := statement.StringClaim(claims, "sub")

	// Step 2.
	if sub != expectedSubject {
		return invalidResult(id, iss, sub, "subject mismatch")
	}

	// Step 3.
	if exp, ok := statement.Int64Claim(claims, "exp"); ok && exp < v.clock.Now().Unix() {
		return invalidResult(id, iss, sub, "expired")
	}

	// Step 4.
	var issuerStatement *statement.Statement
	for i := range chainStatements {
		if statement.StringClaim(chainStatements[i].Claims, "iss") == iss {
			issuerStatement = &chainStatements[i]
			break
		}
	}
	if issuerStatement == nil {
		return invalidResult(id, iss, sub, "issuer not in chain")
	}

	// Step 5.
	keySet, err := statement.KeySetFromClaims(issuerStatement.Claims)
	if err != nil {
		return invalidResult(id, iss, sub, "issuer statement missing jwks")
	}

	// Step 6.
	if _, err := statement.VerifyWithKeySet(jwtStr, keySet); err != nil {
		return invalidResult(id, iss, sub, "signature verification failed")
	}

	// Step 7.
	return Validation{ID: id, Issuer: iss, Subject: sub, Valid: true, Reason: "valid"}
}

// unverifiedClaims reads a JWT's claims without checking its signature,
// the way step 1 of spec.md §4.8 requires (the issuer isn't known to
// be trustworthy until step 6).
func unverifiedClaims(jwtStr string) (map[string]any, error) {
	return statement.UnverifiedClaims(jwtStr)
}
