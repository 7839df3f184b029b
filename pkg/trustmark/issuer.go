// Package trustmark implements the Trust Mark Issuer (spec.md §4.6)
// and Trust Mark Validator (spec.md §4.8).
package trustmark

import (
	"time"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
	"github.com/SUNET/go-federation/pkg/statement"
)

// Issuer mints and tracks the Trust Marks this entity issues to
// others, and records Trust Marks this entity has received.
type Issuer struct {
	state *entity.State
	mgr   *keys.Manager
}

// NewIssuer builds an Issuer bound to one entity's state and signing
// key.
func NewIssuer(state *entity.State, mgr *keys.Manager) *Issuer {
	return &Issuer{state: state, mgr: mgr}
}

// Issue mints a Trust Mark asserting that subjectID meets the criteria
// named by markID, signs it, records it in Entity State, and returns
// the signed JWT. expiresAt is optional (nil means no expiry).
func (i *Issuer) Issue(markID, subjectID string, expiresAt *time.Time, now time.Time) (string, error) {
	jwtStr, err := statement.BuildTrustMark(i.state.EntityID(), markID, subjectID, expiresAt, i.mgr, now)
	if err != nil {
		return "", err
	}

	rec := entity.TrustMarkRecord{
		ID:       markID,
		Issuer:   i.state.EntityID(),
		Subject:  subjectID,
		IssuedAt: now.Unix(),
		SignedJWT: jwtStr,
	}
	if expiresAt != nil {
		exp := expiresAt.Unix()
		rec.ExpiresAt = &exp
	}
	i.state.AddIssuedTrustMark(rec)
	return jwtStr, nil
}

// Revoke deletes a previously issued Trust Mark from local state.
// It has no network side effect: issued marks are not embedded in this
// entity's .well-known/openid-federation or /fetch responses, so the
// removal shows only in the /manage/trust-marks endpoints.
func (i *Issuer) Revoke(markID string) bool {
	return i.state.RemoveIssuedTrustMark(markID)
}

// AddReceived records a Trust Mark issued to this entity by another,
// so it can later be embedded in this entity's own Entity
// Configuration (spec.md §4.4).
func (i *Issuer) AddReceived(rec entity.TrustMarkRecord) {
	i.state.AddReceivedTrustMark(rec)
}
