package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SignatureVersion is prepended to the canonical request form. Bumping it on
// any format change keeps previously issued signatures from being verified
// against a different canonicalization.
const SignatureVersion = "v1"

// EmptyBodyHash is the SHA256 hash of an empty body
const EmptyBodyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// CanonicalRequest is the fixed set of request fields covered by a signature.
type CanonicalRequest struct {
	Method    string // uppercase HTTP method
	Path      string // URL path, no host, no query string
	Timestamp int64  // unix seconds
	BodyHash  string // SHA256 hex of the raw body, EmptyBodyHash if none
}

// StringToSign renders the canonical form:
// VERSION\nMETHOD\nPATH\nTIMESTAMP\nSHA256(body)
func (r CanonicalRequest) StringToSign() string {
	return fmt.Sprintf("%s\n%s\n%s\n%d\n%s", SignatureVersion, r.Method, r.Path, r.Timestamp, r.BodyHash)
}

// SignRequest computes the hex-encoded HMAC-SHA256 signature of the canonical
// request under the given secret key.
func SignRequest(secretKey string, req CanonicalRequest) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(req.StringToSign()))
	return hex.EncodeToString(h.Sum(nil))
}

// SecureCompare performs constant-time string comparison. MUST be used for
// signature checks; a short-circuiting comparison leaks a timing side channel.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// HashBody computes the SHA256 hex hash of body bytes, or EmptyBodyHash for a
// nil/empty body.
func HashBody(body []byte) string {
	if len(body) == 0 {
		return EmptyBodyHash
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Abs returns the absolute value of x
func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
