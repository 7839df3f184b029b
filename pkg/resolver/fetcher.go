// Package resolver implements the Trust Chain Resolver, spec.md §4.7:
// walking authority_hints upward from a target entity to a trust
// anchor, verifying every Entity Configuration and Subordinate
// Statement encountered along the way.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher is the abstract HTTP collaborator the resolver blocks on.
// Production code uses NewHTTPFetcher; resolver_test.go substitutes a
// hand-rolled fake against this interface directly, while
// fetcher_test.go exercises httpFetcher itself against
// jarcoal/httpmock's interception of the default transport.
type Fetcher interface {
	// Get performs an HTTP GET against rawURL and returns the response
	// body. A non-2xx status is reported as an error.
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// httpFetcher is the production Fetcher, backed by a single
// *http.Client with a fixed request timeout — the resolver's only
// cancellation knob per spec.md §5.
type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a Fetcher whose requests fail after timeout
// elapses. A timeout of zero disables the per-request deadline
// (callers should still bound resolution with a context).
func NewHTTPFetcher(timeout time.Duration) Fetcher {
	return &httpFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *httpFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("resolver: build request for %s: %w", rawURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body from %s: %v", ErrFetchFailed, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, rawURL, resp.StatusCode)
	}
	return body, nil
}

// entityConfigurationURL builds "<entityURL>/.well-known/openid-federation".
func entityConfigurationURL(entityURL string) (string, error) {
	u, err := url.Parse(entityURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid entity URL %q: %v", ErrStructural, entityURL, err)
	}
	u.Path = joinPath(u.Path, ".well-known/openid-federation")
	return u.String(), nil
}

// fetchSubordinateURL builds "<superiorURL>/fetch?sub=<subID>".
func fetchSubordinateURL(superiorURL, subID string) (string, error) {
	u, err := url.Parse(superiorURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid superior URL %q: %v", ErrStructural, superiorURL, err)
	}
	u.Path = joinPath(u.Path, "fetch")
	q := u.Query()
	q.Set("sub", subID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func joinPath(base, suffix string) string {
	if base == "" {
		return "/" + suffix
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + suffix
}
