package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
	"github.com/SUNET/go-federation/pkg/resolver"
	"github.com/SUNET/go-federation/pkg/resolver/resolvermock"
	"github.com/SUNET/go-federation/pkg/statement"
)

// TestResolve_AnchorFetchedTwiceNeverCallsFetch uses a generated
// go.uber.org/mock Fetcher instead of a hand-rolled fake, so the exact
// URLs the resolver issues are asserted deterministically: an entity
// with no authority_hints that is itself the anchor fetches its own
// Entity Configuration once as the target and once while resolving the
// anchor's identity (spec.md §4.7), and never calls /fetch.
func TestResolve_AnchorFetchedTwiceNeverCallsFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	mgr := keys.NewManager()
	require.NoError(t, mgr.Initialize("anchor", nil))
	state := entity.NewState("https://ta.example.org", nil)
	jwtStr, err := statement.BuildEntityConfiguration(state, mgr, time.Hour, clock.Now())
	require.NoError(t, err)

	fetcher := resolvermock.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Get(gomock.Any(), "https://ta.example.org/.well-known/openid-federation").
		Times(2).
		Return([]byte(jwtStr), nil)

	r := resolver.New(fetcher, nil)
	result := r.Resolve(context.Background(), "https://ta.example.org", "https://ta.example.org")
	require.True(t, result.Valid)
}
