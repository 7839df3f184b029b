package api

import (
	"sync"
	"time"

	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
	"github.com/SUNET/go-federation/pkg/logging"
	"github.com/SUNET/go-federation/pkg/resolver"
)

// ServerContext holds the shared state for the API server: one
// Federation Entity's identity, signing key, and the collaborators
// every handler needs. It replaces the teacher's pipeline-oriented
// ServerContext (TSLs, PipelineContext) with the federation entity
// equivalent, per spec.md §4.3 and §5.
//
// The ServerContext always has a configured Logger. If none is
// provided during initialization, a default logger is used.
type ServerContext struct {
	mu sync.RWMutex

	State       *entity.State
	KeyManager  *keys.Manager
	Resolver    *resolver.Resolver
	Logger      logging.Logger
	RateLimiter *RateLimiter
	Metrics     *Metrics
	BaseURL     string
	StartedAt   time.Time
}

// NewServerContext builds a ServerContext. logger may be nil, in which
// case logging.DefaultLogger() is used.
func NewServerContext(state *entity.State, mgr *keys.Manager, r *resolver.Resolver, logger logging.Logger, baseURL string) *ServerContext {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &ServerContext{
		State:      state,
		KeyManager: mgr,
		Resolver:   r,
		Logger:     logger,
		BaseURL:    baseURL,
		StartedAt:  time.Now(),
	}
}

// Lock locks the ServerContext for writing.
func (s *ServerContext) Lock() { s.mu.Lock() }

// Unlock unlocks the ServerContext after writing.
func (s *ServerContext) Unlock() { s.mu.Unlock() }

// RLock locks the ServerContext for reading.
func (s *ServerContext) RLock() { s.mu.RLock() }

// RUnlock unlocks the ServerContext after reading.
func (s *ServerContext) RUnlock() { s.mu.RUnlock() }

// WithLogger returns a copy of the ServerContext using the given
// logger, preserving every other field.
func (s *ServerContext) WithLogger(logger logging.Logger) *ServerContext {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	s.RLock()
	defer s.RUnlock()

	return &ServerContext{
		State:       s.State,
		KeyManager:  s.KeyManager,
		Resolver:    s.Resolver,
		Logger:      logger,
		RateLimiter: s.RateLimiter,
		Metrics:     s.Metrics,
		BaseURL:     s.BaseURL,
		StartedAt:   s.StartedAt,
	}
}
