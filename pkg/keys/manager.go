// Package keys provides process-local custody of a Federation Entity's
// RSA signing key pair, per spec.md §4.1.
package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

const rsaKeyBits = 2048

// Signer is the custody abstraction a KeyManager delegates to. The
// default implementation holds an in-process RSA key; PKCS11Signer (in
// this package) binds to a hardware token instead. Both satisfy the
// same interface so the rest of the system never needs to know which
// is in use.
type Signer interface {
	// Public returns the public half of the signing key.
	Public() *rsa.PublicKey
	// Sign signs a SHA-256 digest using RSASSA-PKCS1-v1_5, the scheme
	// RS256 requires. digest MUST be the 32-byte output of SHA-256.
	Sign(digest []byte) ([]byte, error)
}

// rsaSigner is the default in-process Signer: a key generated at
// startup that never leaves the process.
type rsaSigner struct {
	private *rsa.PrivateKey
}

func newRSASigner() (*rsaSigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, err
	}
	return &rsaSigner{private: key}, nil
}

func (s *rsaSigner) Public() *rsa.PublicKey {
	return &s.private.PublicKey
}

func (s *rsaSigner) Sign(digest []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(rand.Reader, s.private, crypto.SHA256, digest)
}

// KeyInitError wraps a failure to provision the signing key at
// startup; spec.md §4.1's KeyInitFailure.
type KeyInitError struct {
	Err error
}

func (e *KeyInitError) Error() string { return fmt.Sprintf("key initialization failed: %v", e.Err) }
func (e *KeyInitError) Unwrap() error { return e.Err }

// SignError wraps a failure from the signing backend; spec.md §4.1's
// SignFailure.
type SignError struct {
	Err error
}

func (e *SignError) Error() string { return fmt.Sprintf("signing failed: %v", e.Err) }
func (e *SignError) Unwrap() error { return e.Err }

// Manager is the deterministic, process-local custodian of an entity's
// signing key pair. It must be initialized exactly once before any
// signing or verification; it refuses to expose the private key
// through any public operation.
type Manager struct {
	mu     sync.RWMutex
	kid    string
	signer Signer
	pubJWK jwk.Key
}

// NewManager constructs an uninitialized Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize generates the process's RSA-2048 signing key (or, if
// signer is non-nil, adopts that custody backend instead — see
// PKCS11Signer) and derives the stable kid "<entityName>-key-1".
func (m *Manager) Initialize(entityName string, signer Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signer == nil {
		s, err := newRSASigner()
		if err != nil {
			return &KeyInitError{Err: err}
		}
		signer = s
	}

	kid := entityName + "-key-1"
	key, err := jwk.Import(signer.Public())
	if err != nil {
		return &KeyInitError{Err: err}
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return &KeyInitError{Err: err}
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return &KeyInitError{Err: err}
	}
	if err := key.Set(jwk.AlgorithmKey, "RS256"); err != nil {
		return &KeyInitError{Err: err}
	}

	m.kid = kid
	m.signer = signer
	m.pubJWK = key
	return nil
}

// KeyID returns the stable kid published in the JWK and used in every
// signed JWT header.
func (m *Manager) KeyID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kid
}

// PublicJWK returns the public key as a JWK containing
// {kty, kid, use, alg, n, e}. The private key is never reachable from
// the returned value.
func (m *Manager) PublicJWK() jwk.Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pubJWK
}

// PublicKey returns the raw RSA public key backing this manager, for
// callers (such as pkg/statement's crypto.Signer adapter) that need
// the key in its native form rather than as a JWK.
func (m *Manager) PublicKey() *rsa.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.signer == nil {
		return nil
	}
	return m.signer.Public()
}

// Sign produces an RSASSA-PKCS1-v1_5 SHA-256 signature over digest
// using the custody backend selected at Initialize time.
func (m *Manager) Sign(digest []byte) ([]byte, error) {
	m.mu.RLock()
	signer := m.signer
	m.mu.RUnlock()
	if signer == nil {
		return nil, &SignError{Err: fmt.Errorf("key manager not initialized")}
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, &SignError{Err: err}
	}
	return sig, nil
}
