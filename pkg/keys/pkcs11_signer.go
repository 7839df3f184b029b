package keys

import (
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/ThalesGroup/crypto11"
)

// PKCS11Signer implements Signer using a key resident on a PKCS#11
// hardware token. It is adapted from the XML-DSIG PKCS#11 signer this
// project used before it spoke JWTs: the HSM plumbing (URI parsing,
// context configuration, key lookup by label/ID) is unchanged, only
// the final signing step differs — RSASSA-PKCS1-v1_5 over a SHA-256
// digest instead of an enveloped XML signature.
type PKCS11Signer struct {
	config   *crypto11.Config
	keyLabel string
	keyID    string

	mu          sync.Mutex
	context     *crypto11.Context
	privateKey  crypto.Signer
	initialized bool
}

// NewPKCS11Signer creates a PKCS11Signer bound to a key identified by
// label within the token described by config.
func NewPKCS11Signer(config *crypto11.Config, keyLabel string) *PKCS11Signer {
	return &PKCS11Signer{
		config:   config,
		keyLabel: keyLabel,
		keyID:    "01",
	}
}

// NewPKCS11SignerFromURI builds a PKCS11Signer from an RFC 7512
// PKCS#11 URI, e.g.
// "pkcs11:module=/usr/lib/softhsm/libsofthsm2.so;token=fed;pin=1234".
func NewPKCS11SignerFromURI(pkcs11URI, keyLabel string) (*PKCS11Signer, error) {
	config := extractPKCS11Config(pkcs11URI)
	if config == nil {
		return nil, fmt.Errorf("invalid PKCS#11 URI: %s", pkcs11URI)
	}
	return NewPKCS11Signer(config, keyLabel), nil
}

// SetKeyID overrides the default key ID ("01") used for key lookup.
func (ps *PKCS11Signer) SetKeyID(id string) {
	ps.keyID = id
}

func (ps *PKCS11Signer) initialize() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.initialized {
		return nil
	}

	ctx, err := crypto11.Configure(ps.config)
	if err != nil {
		return fmt.Errorf("failed to configure PKCS#11 context: %w", err)
	}

	idBytes, err := hexToBytes(ps.keyID)
	if err != nil {
		return fmt.Errorf("failed to convert key ID to bytes: %w", err)
	}

	priv, err := ctx.FindKeyPair(idBytes, []byte(ps.keyLabel))
	if err != nil {
		return fmt.Errorf("failed to find private key with label %q and ID %q: %w", ps.keyLabel, ps.keyID, err)
	}

	ps.context = ctx
	ps.privateKey = priv
	ps.initialized = true
	return nil
}

// Public returns the RSA public key backing this signer, initializing
// the PKCS#11 context on first use; it returns nil if that fails.
func (ps *PKCS11Signer) Public() *rsa.PublicKey {
	if err := ps.initialize(); err != nil {
		return nil
	}
	pub, _ := ps.privateKey.Public().(*rsa.PublicKey)
	return pub
}

// Sign signs digest (a SHA-256 hash) using the HSM-resident key.
func (ps *PKCS11Signer) Sign(digest []byte) ([]byte, error) {
	if err := ps.initialize(); err != nil {
		return nil, err
	}
	return ps.privateKey.Sign(nil, digest, crypto.SHA256)
}

// Close releases the PKCS#11 session. Safe to call on an
// uninitialized signer.
func (ps *PKCS11Signer) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	var err error
	if ps.context != nil {
		err = ps.context.Close()
	}
	ps.initialized = false
	ps.context = nil
	ps.privateKey = nil
	return err
}

func hexToBytes(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	return hex.DecodeString(hexStr)
}

// extractPKCS11Config parses an RFC 7512 PKCS#11 URI into a
// crypto11.Config. Returns nil if the URI is not a well-formed
// "pkcs11:module=...;pin=...;token=...;slot-id=..." string.
func extractPKCS11Config(pkcs11URI string) *crypto11.Config {
	u, err := url.Parse(pkcs11URI)
	if err != nil || u.Scheme != "pkcs11" || u.Opaque == "" {
		return nil
	}

	config := &crypto11.Config{}
	for _, param := range strings.Split(u.Opaque, ";") {
		if param == "" {
			continue
		}
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "module":
			config.Path = kv[1]
		case "pin":
			config.Pin = kv[1]
		case "token":
			config.TokenLabel = kv[1]
		case "slot-id":
			if slotID, err := strconv.Atoi(kv[1]); err == nil {
				config.SlotNumber = &slotID
			}
		}
	}

	if config.Path == "" {
		return nil
	}
	return config
}
