// Package oidfed implements a TrustRegistry using this repository's own
// OpenID Federation trust chain resolver and Trust Mark validator,
// bridging AuthZEN trust evaluation requests onto spec.md §4.7/§4.8.
package oidfed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SUNET/go-federation/pkg/authzen"
	"github.com/SUNET/go-federation/pkg/registry"
	"github.com/SUNET/go-federation/pkg/resolver"
	"github.com/SUNET/go-federation/pkg/statement"
	"github.com/SUNET/go-federation/pkg/trustmark"
)

// OIDFedRegistry is a TrustRegistry backed by one or more configured
// trust anchors: it resolves the requested entity's trust chain up to
// one of them, and optionally requires specific Trust Marks to be
// present and valid before authorizing the binding.
type OIDFedRegistry struct {
	resolver           *resolver.Resolver
	trustAnchors       []string
	requiredTrustMarks []string
	description        string
}

// Config holds configuration for creating an OIDFedRegistry.
type Config struct {
	// TrustAnchorURLs are the federation trust anchors this registry
	// resolves target entities against, tried in order.
	TrustAnchorURLs []string

	// RequiredTrustMarks is an optional list of Trust Mark ids that
	// must be present and valid in the resolved chain.
	RequiredTrustMarks []string

	// Description of this registry instance.
	Description string
}

// NewOIDFedRegistry creates a new OpenID Federation trust registry.
func NewOIDFedRegistry(r *resolver.Resolver, config Config) (*OIDFedRegistry, error) {
	if r == nil {
		return nil, fmt.Errorf("oidfed: resolver is required")
	}
	if len(config.TrustAnchorURLs) == 0 {
		return nil, fmt.Errorf("oidfed: at least one trust anchor must be configured")
	}

	description := config.Description
	if description == "" {
		description = fmt.Sprintf("OpenID Federation registry with %d trust anchor(s)", len(config.TrustAnchorURLs))
	}

	return &OIDFedRegistry{
		resolver:           r,
		trustAnchors:       append([]string(nil), config.TrustAnchorURLs...),
		requiredTrustMarks: append([]string(nil), config.RequiredTrustMarks...),
		description:        description,
	}, nil
}

// Name returns the registry name.
func (r *OIDFedRegistry) Name() string {
	return "oidfed-registry"
}

// Description returns a human-readable description.
func (r *OIDFedRegistry) Description() string {
	return r.description
}

// SupportedResourceTypes returns the resource types this registry can
// evaluate. OpenID Federation works with entity identifiers (URLs), so
// it accepts both "jwk" and "x5c" shaped resources as long as
// subject.id is itself an entity identifier URL.
func (r *OIDFedRegistry) SupportedResourceTypes() []string {
	return []string{"jwk", "x5c"}
}

// Evaluate resolves the requested entity's trust chain to one of the
// configured anchors and authorizes the binding if a valid chain is
// found. When required Trust Marks are configured, the Trust Marks
// embedded in the chain's leaf statement must also validate; no other
// Trust Marks are checked.
func (r *OIDFedRegistry) Evaluate(ctx context.Context, req *authzen.EvaluationRequest) (*authzen.EvaluationResponse, error) {
	entityID, err := r.extractEntityID(req)
	if err != nil {
		return deniedResponse("unable to extract entity ID from request", map[string]interface{}{"error": err.Error()}), nil
	}

	var chain *resolver.ChainResult
	var anchorUsed string
	for _, anchor := range r.trustAnchors {
		result := r.resolver.Resolve(ctx, entityID, anchor)
		if result.Valid {
			chain = result
			anchorUsed = anchor
			break
		}
	}
	if chain == nil {
		return deniedResponse("no valid trust chain found", map[string]interface{}{
			"entity_id":     entityID,
			"trust_anchors": r.trustAnchors,
		}), nil
	}

	if len(r.requiredTrustMarks) > 0 {
		if missing := r.missingTrustMarks(chain); len(missing) > 0 {
			return deniedResponse("required trust marks not present or invalid", map[string]interface{}{
				"entity_id":       entityID,
				"missing_marks":   missing,
				"required_marks":  r.requiredTrustMarks,
				"trust_anchor":    anchorUsed,
			}), nil
		}
	}

	return &authzen.EvaluationResponse{
		Decision: true,
		Context: &authzen.EvaluationResponseContext{
			Reason: map[string]interface{}{
				"entity_id":           entityID,
				"trust_chain_length":  len(chain.Statements),
				"trust_anchor":        anchorUsed,
				"resolved_at":         time.Now().UTC().Format(time.RFC3339),
			},
		},
	}, nil
}

// Info returns registry information.
func (r *OIDFedRegistry) Info() registry.RegistryInfo {
	return registry.RegistryInfo{
		Name:         r.Name(),
		Type:         "openid_federation",
		Description:  r.description,
		TrustAnchors: append([]string(nil), r.trustAnchors...),
	}
}

// Healthy returns true if the registry is operational.
func (r *OIDFedRegistry) Healthy() bool {
	return len(r.trustAnchors) > 0
}

// Refresh is a no-op: this registry is stateless per request, holding
// no cached resolution state of its own beyond what pkg/resolver's
// optional cache already manages.
func (r *OIDFedRegistry) Refresh(ctx context.Context) error {
	return nil
}

// extractEntityID extracts the entity identifier from the request. The
// AuthZEN Trust Registry Profile requires subject.type == "key" and
// subject.id/resource.id to be the name bound to the key; for a
// federation-backed registry, that name must itself be a federation
// entity identifier URL.
func (r *OIDFedRegistry) extractEntityID(req *authzen.EvaluationRequest) (string, error) {
	if req.Subject.Type == "key" && isEntityURL(req.Subject.ID) {
		return req.Subject.ID, nil
	}
	if isEntityURL(req.Resource.ID) {
		return req.Resource.ID, nil
	}
	return "", fmt.Errorf("no entity_id found in request subject or resource")
}

func isEntityURL(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}

// missingTrustMarks validates r.requiredTrustMarks against the Trust
// Marks embedded in the leaf statement of the resolved chain, using
// the Trust Mark Validator (spec.md §4.8) against the chain itself.
func (r *OIDFedRegistry) missingTrustMarks(chain *resolver.ChainResult) []string {
	if len(chain.Statements) == 0 {
		return r.requiredTrustMarks
	}
	leaf := chain.Statements[0]
	subject := statement.StringClaim(leaf.Claims, "sub")
	raw, _ := leaf.Claims["trust_marks"].([]any)
	marks := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			marks = append(marks, s)
		}
	}

	validator := trustmark.NewValidator(nil)
	verdicts := validator.Validate(marks, subject, chain.Statements)

	present := make(map[string]bool, len(verdicts))
	for _, v := range verdicts {
		if v.Valid {
			present[v.ID] = true
		}
	}

	var missing []string
	for _, required := range r.requiredTrustMarks {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func deniedResponse(message string, reason map[string]interface{}) *authzen.EvaluationResponse {
	reason["message"] = message
	return &authzen.EvaluationResponse{
		Decision: false,
		Context: &authzen.EvaluationResponseContext{
			Reason: reason,
		},
	}
}
