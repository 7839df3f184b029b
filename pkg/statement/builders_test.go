package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
)

func newTestManager(t *testing.T, name string) *keys.Manager {
	t.Helper()
	mgr := keys.NewManager()
	require.NoError(t, mgr.Initialize(name, nil))
	return mgr
}

func TestBuildEntityConfiguration_SelfSignedAndVerifiable(t *testing.T) {
	mgr := newTestManager(t, "leaf")
	state := entity.NewState("https://leaf.example.org", []string{"https://ta.example.org"})
	state.SetMetadata(map[string]any{"openid_relying_party": map[string]any{"client_name": "leaf"}})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jwtStr, err := BuildEntityConfiguration(state, mgr, time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, jwtStr)

	claims, err := VerifySelfSigned(jwtStr)
	require.NoError(t, err)
	assert.Equal(t, "https://leaf.example.org", StringClaim(claims, "iss"))
	assert.Equal(t, "https://leaf.example.org", StringClaim(claims, "sub"))
	assert.Equal(t, []string{"https://ta.example.org"}, StringSliceClaim(claims, "authority_hints"))
	assert.Equal(t, KindEntityConfiguration, ClassifyStatement(claims))
}

func TestBuildEntityConfiguration_DefaultMetadataWhenEmpty(t *testing.T) {
	mgr := newTestManager(t, "leaf")
	state := entity.NewState("https://leaf.example.org", nil)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jwtStr, err := BuildEntityConfiguration(state, mgr, time.Hour, now)
	require.NoError(t, err)

	claims, err := VerifySelfSigned(jwtStr)
	require.NoError(t, err)

	md := MapClaim(claims, "metadata")
	require.NotNil(t, md)
	fe, ok := md["federation_entity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://leaf.example.org/fetch", fe["federation_fetch_endpoint"])
	assert.Equal(t, "https://leaf.example.org/list", fe["federation_list_endpoint"])
}

func TestBuildSubordinateStatement_IssIsSuperior(t *testing.T) {
	superiorMgr := newTestManager(t, "ta")
	superiorState := entity.NewState("https://ta.example.org", nil)

	subMgr := newTestManager(t, "leaf")
	subJWKS, err := jwksClaim(subMgr.PublicJWK())
	require.NoError(t, err)

	rec := entity.SubordinateRecord{
		EntityID: "https://leaf.example.org",
		JWKS:     subJWKS,
		Metadata: map[string]any{"openid_relying_party": map[string]any{}},
	}
	superiorState.AddSubordinate(rec)
	stored, ok := superiorState.Subordinate("https://leaf.example.org")
	require.True(t, ok)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jwtStr, err := BuildSubordinateStatement(superiorState, stored, superiorMgr, time.Hour, now)
	require.NoError(t, err)

	keySet, err := KeySetFromClaims(map[string]any{"jwks": subJWKS})
	require.NoError(t, err)

	superiorKeySet, err := jwksClaim(superiorMgr.PublicJWK())
	require.NoError(t, err)
	superiorKeySetParsed, err := KeySetFromClaims(map[string]any{"jwks": superiorKeySet})
	require.NoError(t, err)

	claims, err := VerifyWithKeySet(jwtStr, superiorKeySetParsed)
	require.NoError(t, err)
	assert.Equal(t, "https://ta.example.org", StringClaim(claims, "iss"))
	assert.Equal(t, "https://leaf.example.org", StringClaim(claims, "sub"))
	assert.Equal(t, KindSubordinateStatement, ClassifyStatement(claims))

	_ = keySet // the subordinate's own key set, unused in this verification path
}

func TestBuildTrustMark_OptionalExpiry(t *testing.T) {
	mgr := newTestManager(t, "anchor")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	jwtStr, err := BuildTrustMark("https://ta.example.org", "https://ta.example.org/marks/certified", "https://leaf.example.org", nil, mgr, now)
	require.NoError(t, err)

	keySetClaim, err := jwksClaim(mgr.PublicJWK())
	require.NoError(t, err)
	keySet, err := KeySetFromClaims(map[string]any{"jwks": keySetClaim})
	require.NoError(t, err)

	claims, err := VerifyWithKeySet(jwtStr, keySet)
	require.NoError(t, err)
	assert.Equal(t, "https://ta.example.org/marks/certified", StringClaim(claims, "id"))
	_, hasExp := claims["exp"]
	assert.False(t, hasExp)
	assert.Equal(t, KindTrustMark, ClassifyStatement(claims))
}

func TestVerifyWithKeySet_RejectsWrongKeySet(t *testing.T) {
	mgr := newTestManager(t, "leaf")
	state := entity.NewState("https://leaf.example.org", nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	jwtStr, err := BuildEntityConfiguration(state, mgr, time.Hour, now)
	require.NoError(t, err)

	other := newTestManager(t, "impostor")
	otherKeySetClaim, err := jwksClaim(other.PublicJWK())
	require.NoError(t, err)
	otherKeySet, err := KeySetFromClaims(map[string]any{"jwks": otherKeySetClaim})
	require.NoError(t, err)

	_, err = VerifyWithKeySet(jwtStr, otherKeySet)
	assert.Error(t, err)
}
