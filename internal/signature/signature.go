// internal/signature/signature.go

// Package signature checks that webhook deliveries were signed by the hosting
// platform with the shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/go-github/v62/github"
)

// HeaderName carries the sha256 HMAC of the raw body.
const HeaderName = github.SHA256SignatureHeader

const prefix = "sha256="

// Verify reports whether header is a well-formed "sha256=<hex>" HMAC of body
// under secret. A missing header or secret is simply invalid.
func Verify(body []byte, header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}
	if !strings.HasPrefix(header, prefix) || len(header) != len(prefix)+sha256.Size*2 {
		return false
	}
	// ValidateSignature hex-decodes the digest and compares with hmac.Equal.
	return github.ValidateSignature(header, body, []byte(secret)) == nil
}

// Sign produces the header value the platform would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}
