package resolver

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
	"github.com/SUNET/go-federation/pkg/statement"
)

// fakeFetcher serves canned bodies from a map keyed by exact URL,
// standing in for the real network by substituting the Fetcher
// interface itself — no HTTP round trip to mock at all. fetcher_test.go
// covers the real httpFetcher/NewHTTPFetcher path with jarcoal/httpmock
// instead, since this fake never exercises that code.
type fakeFetcher struct {
	responses map[string][]byte
}

func (f *fakeFetcher) Get(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := f.responses[rawURL]
	if !ok {
		return nil, ErrFetchFailed
	}
	return body, nil
}

type testEntity struct {
	url   string
	state *entity.State
	mgr   *keys.Manager
}

func newTestEntity(t *testing.T, entityURL string, authorityHints []string) *testEntity {
	t.Helper()
	mgr := keys.NewManager()
	require.NoError(t, mgr.Initialize(entityURL, nil))
	state := entity.NewState(entityURL, authorityHints)
	return &testEntity{url: entityURL, state: state, mgr: mgr}
}

func (e *testEntity) configJWT(t *testing.T, now time.Time) string {
	t.Helper()
	jwtStr, err := statement.BuildEntityConfiguration(e.state, e.mgr, time.Hour, now)
	require.NoError(t, err)
	return jwtStr
}

func configURL(t *testing.T, entityURL string) string {
	t.Helper()
	u, err := url.Parse(entityURL)
	require.NoError(t, err)
	u.Path = "/.well-known/openid-federation"
	return u.String()
}

func fetchURLFor(t *testing.T, superiorURL, subID string) string {
	t.Helper()
	u, err := url.Parse(superiorURL)
	require.NoError(t, err)
	u.Path = "/fetch"
	q := u.Query()
	q.Set("sub", subID)
	u.RawQuery = q.Encode()
	return u.String()
}

func TestResolve_SingleHopToAnchor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	anchor := newTestEntity(t, "https://anchor.example.org", nil)
	leaf := newTestEntity(t, "https://leaf.example.org", []string{anchor.url})

	leafJWKS, err := jwksClaimForTest(t, leaf.mgr)
	require.NoError(t, err)
	anchor.state.AddSubordinate(entity.SubordinateRecord{EntityID: leaf.url, JWKS: leafJWKS})
	subRec, ok := anchor.state.Subordinate(leaf.url)
	require.True(t, ok)
	subJWT, err := statement.BuildSubordinateStatement(anchor.state, subRec, anchor.mgr, time.Hour, now)
	require.NoError(t, err)

	responses := map[string][]byte{
		configURL(t, leaf.url):               []byte(leaf.configJWT(t, now)),
		configURL(t, anchor.url):              []byte(anchor.configJWT(t, now)),
		fetchURLFor(t, anchor.url, leaf.url): []byte(subJWT),
	}

	r := New(&fakeFetcher{responses: responses}, nil)
	result := r.Resolve(context.Background(), leaf.url, anchor.url)

	require.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Len(t, result.Statements, 3)
}

func TestResolve_TargetIsAnchor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := newTestEntity(t, "https://anchor.example.org", nil)

	responses := map[string][]byte{
		configURL(t, anchor.url): []byte(anchor.configJWT(t, now)),
	}
	r := New(&fakeFetcher{responses: responses}, nil)
	result := r.Resolve(context.Background(), anchor.url, anchor.url)

	require.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Len(t, result.Statements, 1)
}

func TestResolve_CycleDetected(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := newTestEntity(t, "https://a.example.org", []string{"https://b.example.org"})
	b := newTestEntity(t, "https://b.example.org", []string{"https://a.example.org"})

	aJWKS, err := jwksClaimForTest(t, a.mgr)
	require.NoError(t, err)
	bJWKS, err := jwksClaimForTest(t, b.mgr)
	require.NoError(t, err)

	b.state.AddSubordinate(entity.SubordinateRecord{EntityID: a.url, JWKS: aJWKS})
	aRecInB, _ := b.state.Subordinate(a.url)
	aSubJWT, err := statement.BuildSubordinateStatement(b.state, aRecInB, b.mgr, time.Hour, now)
	require.NoError(t, err)

	a.state.AddSubordinate(entity.SubordinateRecord{EntityID: b.url, JWKS: bJWKS})

	anchor := newTestEntity(t, "https://anchor.example.org", nil)

	responses := map[string][]byte{
		configURL(t, a.url):                configURLBody(t, a, now),
		configURL(t, b.url):                configURLBody(t, b, now),
		configURL(t, anchor.url):           configURLBody(t, anchor, now),
		fetchURLFor(t, b.url, a.url): []byte(aSubJWT),
	}

	r := New(&fakeFetcher{responses: responses}, nil)
	result := r.Resolve(context.Background(), a.url, anchor.url)

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "cycle detected")
}

func TestResolve_MissingTargetFetchFails(t *testing.T) {
	r := New(&fakeFetcher{responses: map[string][]byte{}}, nil)
	result := r.Resolve(context.Background(), "https://ghost.example.org", "https://anchor.example.org")
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func jwksClaimForTest(t *testing.T, mgr *keys.Manager) (map[string]any, error) {
	t.Helper()
	return statement.JWKSClaim(mgr.PublicJWK())
}

func configURLBody(t *testing.T, e *testEntity, now time.Time) []byte {
	t.Helper()
	return []byte(e.configJWT(t, now))
}
