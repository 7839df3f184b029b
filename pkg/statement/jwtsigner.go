package statement

import (
	"crypto"
	"crypto/rsa"
	"fmt"
	"io"
)

// digestSigner adapts a keys.Manager-shaped signing backend to
// crypto.Signer so it can be handed to lestrrat-go/jwx/v3's jws.Sign.
// jws.Sign always hashes the signing input with the algorithm's hash
// (SHA-256 for RS256) before calling Sign, so opts.HashFunc() is never
// anything other than crypto.SHA256 in this codebase; rand is ignored
// because RSASSA-PKCS1-v1_5 signing is deterministic given the digest.
type digestSigner struct {
	public *rsa.PublicKey
	sign   func(digest []byte) ([]byte, error)
}

func newDigestSigner(public *rsa.PublicKey, sign func(digest []byte) ([]byte, error)) crypto.Signer {
	return &digestSigner{public: public, sign: sign}
}

func (d *digestSigner) Public() crypto.PublicKey {
	return d.public
}

func (d *digestSigner) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts != nil && opts.HashFunc() != crypto.SHA256 {
		return nil, fmt.Errorf("statement: unsupported hash %s, only SHA-256 is used for RS256", opts.HashFunc())
	}
	return d.sign(digest)
}
