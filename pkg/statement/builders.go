package statement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
)

// JWKSClaim wraps a single JWK into the {"keys": [...]} shape the
// "jwks" claim requires, as a plain map so it round-trips through
// encoding/json cleanly. Exported for callers outside this package
// (e.g. the resolver's tests) that
// need to build a jwks claim from a keys.Manager's public key without
// duplicating the JWK-Set marshalling.
func JWKSClaim(key jwk.Key) (map[string]any, error) {
	return jwksClaim(key)
}

func jwksClaim(key jwk.Key) (map[string]any, error) {
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("statement: add key to set: %w", err)
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("statement: marshal jwks: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("statement: unmarshal jwks: %w", err)
	}
	return out, nil
}

// jwksClaimFromMap re-wraps an already-JSON-shaped jwks claim (as
// stored in a entity.SubordinateRecord) unchanged, validating it
// parses as a JWK Set.
func jwksClaimFromMap(m map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("statement: marshal jwks: %w", err)
	}
	if _, err := jwk.Parse(raw); err != nil {
		return nil, fmt.Errorf("statement: %w: invalid jwks: %v", ErrMalformed, err)
	}
	return m, nil
}

// BuildEntityConfiguration mints the self-signed Entity Configuration
// for state's entity, per spec.md §4.4. iss == sub == the entity's own
// identifier; jwks carries the entity's own public key.
func BuildEntityConfiguration(state *entity.State, mgr *keys.Manager, ttl time.Duration, now time.Time) (string, error) {
	jwks, err := jwksClaim(mgr.PublicJWK())
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"iss":  state.EntityID(),
		"sub":  state.EntityID(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
		"jwks": jwks,
	}
	if hints := state.AuthorityHints(); len(hints) > 0 {
		claims["authority_hints"] = hints
	}
	if md := state.Metadata(); len(md) > 0 {
		claims["metadata"] = md
	} else {
		claims["metadata"] = defaultEntityMetadata(state.EntityID())
	}
	if marks := state.ReceivedTrustMarks(); len(marks) > 0 {
		tms := make([]string, 0, len(marks))
		for _, m := range marks {
			tms = append(tms, m.SignedJWT)
		}
		claims["trust_marks"] = tms
	}

	return Sign(claims, mgr)
}

// BuildSubordinateStatement mints a superior's signed assertion about
// one of its subordinates, per spec.md §4.5. iss is the superior
// (state.EntityID()); sub is the subordinate; jwks carries the
// subordinate's declared keys, not the superior's.
func BuildSubordinateStatement(state *entity.State, rec entity.SubordinateRecord, mgr *keys.Manager, ttl time.Duration, now time.Time) (string, error) {
	jwks, err := jwksClaimFromMap(rec.JWKS)
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"iss":  state.EntityID(),
		"sub":  rec.EntityID,
		"aud":  rec.EntityID,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
		"jwks": jwks,
	}
	if len(rec.Metadata) > 0 {
		claims["metadata"] = rec.Metadata
	}
	if len(rec.DeclaredAuthorityHints) > 0 {
		claims["authority_hints"] = rec.DeclaredAuthorityHints
	}
	if rec.SourceEndpoint != "" {
		claims["source_endpoint"] = rec.SourceEndpoint
	}

	return Sign(claims, mgr)
}

// BuildTrustMark mints a Trust Mark asserting that subjectID meets the
// criteria named by markID, per spec.md §4.6. expiresAt is optional:
// a nil value means the mark never expires.
func BuildTrustMark(issuerID, markID, subjectID string, expiresAt *time.Time, mgr *keys.Manager, now time.Time) (string, error) {
	claims := map[string]any{
		"iss": issuerID,
		"sub": subjectID,
		"id":  markID,
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}
	if expiresAt != nil {
		claims["exp"] = expiresAt.Unix()
	}
	return Sign(claims, mgr)
}

// defaultEntityMetadata builds the federation_entity metadata block
// spec.md §4.4 requires when an entity has declared no metadata of
// its own: its own fetch and list endpoint URLs.
func defaultEntityMetadata(entityID string) map[string]any {
	return map[string]any{
		"federation_entity": map[string]any{
			"federation_fetch_endpoint": joinEntityPath(entityID, "fetch"),
			"federation_list_endpoint":  joinEntityPath(entityID, "list"),
		},
	}
}

func joinEntityPath(base, suffix string) string {
	return strings.TrimRight(base, "/") + "/" + suffix
}
