package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise the real httpFetcher/NewHTTPFetcher against
// jarcoal/httpmock's interception of http.DefaultTransport, rather than
// substituting the Fetcher interface as resolver_test.go's fakeFetcher
// does — so the actual *http.Client request/response handling gets
// covered at least once.

func TestHTTPFetcher_GetReturnsBody(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	const url = "https://ta.example.org/.well-known/openid-federation"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(200, "signed-jwt-body"))

	f := NewHTTPFetcher(time.Second)
	body, err := f.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "signed-jwt-body", string(body))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPFetcher_GetFailsOnNon2xx(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	const url = "https://ta.example.org/.well-known/openid-federation"
	httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(500, "boom"))

	f := NewHTTPFetcher(time.Second)
	_, err := f.Get(context.Background(), url)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestHTTPFetcher_GetFailsOnConnectionError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterNoResponder(httpmock.NewErrorResponder(assert.AnError))

	f := NewHTTPFetcher(time.Second)
	_, err := f.Get(context.Background(), "https://unregistered.example.org/.well-known/openid-federation")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
