package statement

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/SUNET/go-federation/pkg/keys"
)

// Sign builds a compact RS256 JWT from claims, keyed and signed by
// mgr. This is spec.md §4.2's sign_statement: every outgoing statement
// in this system — Entity Configuration, Subordinate Statement, or
// Trust Mark — goes through this single function.
//
// Claims are signed through jws.Sign directly on their JSON-marshaled
// form rather than through jwx's jwt.Token: spec.md treats every
// statement's claim set as an opaque JSON object (Trust Marks and
// Subordinate Statements carry claims the registered jwt.Token model
// has no first-class support for), so this package never forces
// claims through that model on the way in or out.
func Sign(claims map[string]any, mgr *keys.Manager) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("statement: marshal claims: %w", err)
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, mgr.KeyID()); err != nil {
		return "", fmt.Errorf("statement: set kid header: %w", err)
	}
	if err := headers.Set(jws.TypeKey, "JWT"); err != nil {
		return "", fmt.Errorf("statement: set typ header: %w", err)
	}

	signer := newDigestSigner(mgr.PublicKey(), mgr.Sign)
	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256(), signer, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", fmt.Errorf("statement: %w: %v", ErrMalformed, err)
	}
	return string(signed), nil
}

// payloadToClaims unmarshals a verified (or deliberately unverified)
// JWS payload into the plain map[string]any shape the rest of this
// codebase works with.
func payloadToClaims(payload []byte) (map[string]any, error) {
	claims := map[string]any{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("statement: %w: claims are not a JSON object: %v", ErrMalformed, err)
	}
	return claims, nil
}

// UnverifiedClaims parses a compact JWT's claims without checking its
// signature. Used where the verification key can only be determined
// from the claims themselves (VerifySelfSigned) or from a separate
// trust decision (trustmark.Validator's step 1, which only knows which
// key to check against after locating the issuer in a resolved chain).
func UnverifiedClaims(jwtStr string) (map[string]any, error) {
	msg, err := jws.Parse([]byte(jwtStr))
	if err != nil {
		return nil, fmt.Errorf("statement: %w: %v", ErrMalformed, err)
	}
	return payloadToClaims(msg.Payload())
}

// VerifyWithKeySet verifies jwtStr's signature against a pre-trusted
// JWK Set (e.g. the issuing superior's published jwks) and returns its
// claims. It never enforces exp/nbf: per spec.md §9's resolved Open
// Question, expiration is a Trust Mark Validator concern only (see
// pkg/trustmark), not a blanket rule every verification applies.
func VerifyWithKeySet(jwtStr string, keySet jwk.Set) (map[string]any, error) {
	payload, err := jws.Verify([]byte(jwtStr), jws.WithKeySet(keySet))
	if err != nil {
		return nil, fmt.Errorf("statement: %w: %v", ErrVerificationFailed, err)
	}
	return payloadToClaims(payload)
}

// VerifySelfSigned verifies an Entity Configuration: the JWKS the
// statement trusts is embedded in its own payload (the "jwks" claim),
// so the payload must be read once, unverified, to learn which keys to
// check the signature against, and then verified for real against
// that key set. This is spec.md §4.2 step 2's "self-trust" case.
func VerifySelfSigned(jwtStr string) (map[string]any, error) {
	claims, err := UnverifiedClaims(jwtStr)
	if err != nil {
		return nil, err
	}

	keySet, err := KeySetFromClaims(claims)
	if err != nil {
		return nil, err
	}

	return VerifyWithKeySet(jwtStr, keySet)
}

// KeySetFromClaims builds a jwk.Set from a claim set's "jwks" member,
// the shape every Entity Configuration and Subordinate Statement
// carries its subject's keys in.
func KeySetFromClaims(claims map[string]any) (jwk.Set, error) {
	jwksClaim, ok := claims["jwks"]
	if !ok {
		return nil, ErrMissingJWKS
	}
	jwksJSON, err := json.Marshal(jwksClaim)
	if err != nil {
		return nil, fmt.Errorf("statement: remarshal jwks claim: %w", err)
	}
	keySet, err := jwk.Parse(jwksJSON)
	if err != nil {
		return nil, fmt.Errorf("statement: %w: invalid jwks claim: %v", ErrMalformed, err)
	}
	return keySet, nil
}
