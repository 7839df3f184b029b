package entity

import (
	"sync"
)

// SubordinateRecord is what a superior knows about one of its
// subordinates: the subordinate's declared public key set, its
// metadata, and the authority hints it published.
//
// Invariant: DeclaredAuthorityHints always contains the registrar's own
// entity_id; AddSubordinate injects it if the caller omitted it.
type SubordinateRecord struct {
	EntityID               string
	JWKS                    map[string]any
	Metadata                map[string]any
	DeclaredAuthorityHints  []string
	SourceEndpoint          string
	CreatedAt               int64
}

// TrustMarkRecord is either a Trust Mark this entity issued or one it
// received, always alongside the authoritative signed JWT it was
// minted as or received as.
type TrustMarkRecord struct {
	ID         string
	Issuer     string
	Subject    string
	IssuedAt   int64
	ExpiresAt  *int64
	SignedJWT  string
}

// State is the singleton, process-local store of one Federation
// Entity's identity and relationships. All mutators and accessors are
// safe for concurrent use: the subordinates map and both Trust Mark
// sequences are guarded by a single mutex held only for O(1)
// read-modify-write operations, per spec.md §5.
type State struct {
	mu sync.RWMutex

	entityID       string
	authorityHints []string
	subordinates   map[string]SubordinateRecord
	issuedMarks    []TrustMarkRecord
	receivedMarks  []TrustMarkRecord
	metadata       map[string]any
}

// NewState creates an Entity State for the given entity identifier.
// authorityHints may be nil or empty, meaning this entity claims to be
// a Trust Anchor.
func NewState(entityID string, authorityHints []string) *State {
	hints := make([]string, len(authorityHints))
	copy(hints, authorityHints)
	return &State{
		entityID:       entityID,
		authorityHints: hints,
		subordinates:   make(map[string]SubordinateRecord),
		metadata:       make(map[string]any),
	}
}

// EntityID returns this entity's identifier. Immutable for the life of
// the process.
func (s *State) EntityID() string {
	return s.entityID
}

// AuthorityHints returns a snapshot of the declared superiors, in
// order. The returned slice is a copy; mutating it has no effect on
// the State.
func (s *State) AuthorityHints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.authorityHints))
	copy(out, s.authorityHints)
	return out
}

// SetAuthorityHints replaces the declared authority hints wholesale.
func (s *State) SetAuthorityHints(hints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorityHints = append([]string(nil), hints...)
}

// AddAuthorityHint appends a single authority hint if not already
// present.
func (s *State) AddAuthorityHint(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.authorityHints {
		if h == url {
			return
		}
	}
	s.authorityHints = append(s.authorityHints, url)
}

// Metadata returns a snapshot of this entity's declarative metadata.
func (s *State) Metadata() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJSONMap(s.metadata)
}

// SetMetadata replaces this entity's declarative metadata wholesale.
func (s *State) SetMetadata(md map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = cloneJSONMap(md)
}

// AddSubordinate inserts or upserts a subordinate record. The
// registrar injects its own entity_id into the record's
// DeclaredAuthorityHints when missing, satisfying the invariant in
// spec.md §3.
func (s *State) AddSubordinate(rec SubordinateRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasSelf := false
	for _, h := range rec.DeclaredAuthorityHints {
		if h == s.entityID {
			hasSelf = true
			break
		}
	}
	if !hasSelf {
		rec.DeclaredAuthorityHints = append(append([]string(nil), rec.DeclaredAuthorityHints...), s.entityID)
	}
	rec.JWKS = cloneJSONMap(rec.JWKS)
	rec.Metadata = cloneJSONMap(rec.Metadata)
	rec.DeclaredAuthorityHints = append([]string(nil), rec.DeclaredAuthorityHints...)

	s.subordinates[rec.EntityID] = rec
}

// RemoveSubordinate deletes a subordinate record. It is a no-op if the
// entity_id is not registered; the bool return indicates whether a
// record was actually removed.
func (s *State) RemoveSubordinate(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subordinates[entityID]; !ok {
		return false
	}
	delete(s.subordinates, entityID)
	return true
}

// Subordinate looks up a single subordinate record by entity_id.
func (s *State) Subordinate(entityID string) (SubordinateRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.subordinates[entityID]
	if !ok {
		return SubordinateRecord{}, false
	}
	rec.JWKS = cloneJSONMap(rec.JWKS)
	rec.Metadata = cloneJSONMap(rec.Metadata)
	rec.DeclaredAuthorityHints = append([]string(nil), rec.DeclaredAuthorityHints...)
	return rec, true
}

// Subordinates returns a snapshot slice of all registered subordinate
// records. Order is unspecified (map iteration order).
func (s *State) Subordinates() []SubordinateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SubordinateRecord, 0, len(s.subordinates))
	for _, rec := range s.subordinates {
		rec.JWKS = cloneJSONMap(rec.JWKS)
		rec.Metadata = cloneJSONMap(rec.Metadata)
		rec.DeclaredAuthorityHints = append([]string(nil), rec.DeclaredAuthorityHints...)
		out = append(out, rec)
	}
	return out
}

// AddIssuedTrustMark records a Trust Mark this entity minted.
func (s *State) AddIssuedTrustMark(rec TrustMarkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedMarks = append(s.issuedMarks, rec)
}

// RemoveIssuedTrustMark revokes (deletes) a previously issued Trust
// Mark by its type identifier. If more than one record shares the same
// id, all are removed; revocation is local and is not broadcast.
func (s *State) RemoveIssuedTrustMark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.issuedMarks[:0:0]
	removed := false
	for _, rec := range s.issuedMarks {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	s.issuedMarks = kept
	return removed
}

// IssuedTrustMarks returns a snapshot of every Trust Mark this entity
// has issued.
func (s *State) IssuedTrustMarks() []TrustMarkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TrustMarkRecord, len(s.issuedMarks))
	copy(out, s.issuedMarks)
	return out
}

// IssuedTrustMark looks up a single issued Trust Mark by id.
func (s *State) IssuedTrustMark(id string) (TrustMarkRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.issuedMarks {
		if rec.ID == id {
			return rec, true
		}
	}
	return TrustMarkRecord{}, false
}

// AddReceivedTrustMark records a Trust Mark issued to this entity by
// another. Received records are never mutated after being added.
func (s *State) AddReceivedTrustMark(rec TrustMarkRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivedMarks = append(s.receivedMarks, rec)
}

// ReceivedTrustMarks returns a snapshot of every Trust Mark issued to
// this entity, always filtered to those whose subject matches this
// entity's own id (spec.md §3's invariant).
func (s *State) ReceivedTrustMarks() []TrustMarkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TrustMarkRecord, 0, len(s.receivedMarks))
	for _, rec := range s.receivedMarks {
		if rec.Subject == s.entityID {
			out = append(out, rec)
		}
	}
	return out
}

func cloneJSONMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
