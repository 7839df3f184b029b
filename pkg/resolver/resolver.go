package resolver

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"

	"github.com/SUNET/go-federation/pkg/statement"
)

// DefaultMaxHops bounds how many superiors the resolver will climb
// before giving up, per spec.md §4.7, when a Resolver is built without
// an explicit override.
const DefaultMaxHops = 10

// ChainResult is the resolver's full contract: spec.md §4.7's
// `resolve(target_url, anchor_url) → ChainResult`.
type ChainResult struct {
	Valid      bool
	Statements []statement.Statement
	Errors     []string
	Messages   []string
}

func (r *ChainResult) invalid(format string, args ...any) *ChainResult {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	return r
}

func (r *ChainResult) valid(message string) *ChainResult {
	r.Valid = true
	r.Messages = append(r.Messages, message)
	return r
}

// Resolver walks authority_hints from a target entity up to a trust
// anchor, verifying every statement it crosses. It is stateless: two
// concurrent calls to Resolve never share mutable state, matching
// spec.md §5's requirement that resolution not disturb Entity State.
type Resolver struct {
	fetcher Fetcher
	logger  *logrus.Entry
	maxHops int
}

// New builds a Resolver. fetcher is required; logger may be nil, in
// which case logrus's standard logger is used. The hop limit defaults to
// DefaultMaxHops; use NewWithMaxHops to override it from
// config.FederationConfig.MaxHops.
func New(fetcher Fetcher, logger *logrus.Entry) *Resolver {
	return NewWithMaxHops(fetcher, logger, DefaultMaxHops)
}

// NewWithMaxHops builds a Resolver with an explicit hop limit, per
// spec.md §4.7 and the operator-tunable bound in
// config.FederationConfig.MaxHops. maxHops <= 0 falls back to
// DefaultMaxHops.
func NewWithMaxHops(fetcher Fetcher, logger *logrus.Entry, maxHops int) *Resolver {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Resolver{fetcher: fetcher, logger: logger, maxHops: maxHops}
}

// Resolve implements spec.md §4.7's algorithm verbatim.
func (r *Resolver) Resolve(ctx context.Context, targetURL, anchorURL string) *ChainResult {
	result := &ChainResult{}

	currentConfig, err := r.fetchAndVerifyConfig(ctx, targetURL)
	if err != nil {
		return result.invalid("target fetch/verify failed: %v", err)
	}
	result.Statements = append(result.Statements, *currentConfig)
	currentID := statement.StringClaim(currentConfig.Claims, "iss")
	visited := map[string]bool{currentID: true}

	anchorID, err := r.resolveAnchorID(ctx, anchorURL)
	if err != nil {
		return result.invalid("could not resolve anchor identity: %v", err)
	}

	hints := statement.StringSliceClaim(currentConfig.Claims, "authority_hints")
	if len(hints) == 0 {
		if currentID == anchorID {
			return result.valid("entity is the anchor")
		}
		return result.invalid("no authority_hints and not the anchor")
	}

	hops := 0
	for len(hints) > 0 && hops < r.maxHops {
		hops++
		superiorURL := hints[0]
		if visited[superiorURL] {
			return result.invalid("cycle detected at %s", superiorURL)
		}

		superiorConfig, err := r.fetchAndVerifyConfig(ctx, superiorURL)
		if err != nil {
			return result.invalid("superior fetch failed at %s: %v", superiorURL, err)
		}
		result.Statements = append(result.Statements, *superiorConfig)
		superiorID := statement.StringClaim(superiorConfig.Claims, "iss")
		visited[superiorURL] = true
		visited[superiorID] = true

		superiorKeySet, err := statement.KeySetFromClaims(superiorConfig.Claims)
		if err != nil {
			return result.invalid("superior config at %s has no jwks: %v", superiorURL, err)
		}

		subStmt, err := r.fetchAndVerifySubordinate(ctx, superiorURL, currentID, superiorKeySet)
		if err != nil {
			return result.invalid("subordinate fetch failed at %s: %v", superiorURL, err)
		}
		if statement.StringClaim(subStmt.Claims, "iss") != superiorID {
			return result.invalid("subordinate statement issuer mismatch at %s", superiorURL)
		}
		if statement.StringClaim(subStmt.Claims, "sub") != currentID {
			return result.invalid("subordinate statement subject mismatch at %s", superiorURL)
		}
		result.Statements = append(result.Statements, *subStmt)

		if superiorID == anchorID {
			return result.valid("reached anchor")
		}

		currentID = superiorID
		hints = statement.StringSliceClaim(superiorConfig.Claims, "authority_hints")
		if len(hints) == 0 {
			if currentID == anchorID {
				return result.valid("reached anchor at leaf")
			}
			return result.invalid("reached non-anchor terminal at %s", superiorURL)
		}
	}

	return result.invalid("hop limit exceeded (%d hops)", r.maxHops)
}

// resolveAnchorID fetches the anchor's own Entity Configuration and
// reads its iss claim, per spec.md §4.7's resolved Open Question: the
// dynamic mapping, not a static URL→entity-id table.
func (r *Resolver) resolveAnchorID(ctx context.Context, anchorURL string) (string, error) {
	cfg, err := r.fetchAndVerifyConfig(ctx, anchorURL)
	if err != nil {
		return "", err
	}
	id := statement.StringClaim(cfg.Claims, "iss")
	if id == "" {
		return "", fmt.Errorf("%w: anchor configuration has no iss claim", ErrStructural)
	}
	return id, nil
}

// fetchAndVerifyConfig is step (A): GET <url>/.well-known/openid-federation
// and self-verify the returned Entity Configuration against its own
// embedded jwks.
func (r *Resolver) fetchAndVerifyConfig(ctx context.Context, entityURL string) (*statement.Statement, error) {
	fetchURL, err := entityConfigurationURL(entityURL)
	if err != nil {
		return nil, err
	}
	body, err := r.fetcher.Get(ctx, fetchURL)
	if err != nil {
		r.logger.WithError(err).WithField("url", fetchURL).Warn("entity configuration fetch failed")
		return nil, err
	}
	claims, err := statement.VerifySelfSigned(string(body))
	if err != nil {
		r.logger.WithError(err).WithField("url", fetchURL).Warn("entity configuration verification failed")
		return nil, err
	}
	r.logger.WithField("iss", statement.StringClaim(claims, "iss")).Debug("verified entity configuration")
	return &statement.Statement{Kind: statement.KindEntityConfiguration, Claims: claims, JWT: string(body)}, nil
}

// fetchAndVerifySubordinate is step (C): GET <superiorURL>/fetch?sub=<subID>
// and verify the returned Subordinate Statement against the superior's
// jwks.
func (r *Resolver) fetchAndVerifySubordinate(ctx context.Context, superiorURL, subID string, superiorKeySet jwk.Set) (*statement.Statement, error) {
	fetchURL, err := fetchSubordinateURL(superiorURL, subID)
	if err != nil {
		return nil, err
	}
	body, err := r.fetcher.Get(ctx, fetchURL)
	if err != nil {
		r.logger.WithError(err).WithField("url", fetchURL).Warn("subordinate statement fetch failed")
		return nil, err
	}
	claims, err := statement.VerifyWithKeySet(string(body), superiorKeySet)
	if err != nil {
		r.logger.WithError(err).WithField("url", fetchURL).Warn("subordinate statement verification failed")
		return nil, err
	}
	return &statement.Statement{Kind: statement.KindSubordinateStatement, Claims: claims, JWT: string(body)}, nil
}
