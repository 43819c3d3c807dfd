// internal/form/csrf.go
//
// Adept Admin – Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Every rendered POST form embeds a hidden `csrf_token` input.  The server
//   verifies it on POST to ensure the request came from a page it rendered.
//   The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured secret.
//
//   No server-side state is required, so any replica can verify a token
//   issued by any other replica sharing the secret.
//
// Workflow
//   •  NewCSRF(secret)  → base64url secret of at least 32 bytes, or a
//      random per-process key when unset.
//   •  Generate()       → token string for the renderer.
//   •  Verify(tok)      → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	maxAge     = 2 * time.Hour        // token valid window
	maxSkew    = time.Minute
)

// CSRFField is the hidden input that carries the token.
const CSRFField = "csrf_token"

// CSRF issues and verifies tokens.  Safe for concurrent use.
type CSRF struct {
	key []byte
	now func() time.Time
}

// NewCSRF decodes secret.  When secret is empty or too short a random key
// is generated and ephemeral is true; tokens then die with the process.
func NewCSRF(secret string) (c *CSRF, ephemeral bool) {
	if b, err := base64.RawURLEncoding.DecodeString(secret); err == nil && len(b) >= 32 {
		return &CSRF{key: b, now: time.Now}, false
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &CSRF{key: key, now: time.Now}, true
}

// Generate creates a new token.  Call once per form render.
func (c *CSRF) Generate() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok passes HMAC and age checks.
func (c *CSRF) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce, tsBytes, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := c.now()
	if now.Sub(issued) > maxAge || issued.Sub(now) > maxSkew {
		return false
	}
	return hmac.Equal(sig, c.sign(nonce, tsBytes))
}

func (c *CSRF) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
