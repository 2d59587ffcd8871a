package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// codeVerifierEntropy is the number of random bytes behind the code verifier
// (RFC 7636 requires at least 32 bytes of entropy).
const codeVerifierEntropy = 32

// PKCEParams holds a one-time verifier/challenge pair for an authorization
// attempt. A pair is consumed by exactly one code exchange and never reused.
type PKCEParams struct {
	Verifier  string
	Challenge string
}

// GeneratePKCEParams generates a fresh PKCE pair. The verifier is the
// unpadded base64url encoding of 32 cryptographically random bytes; the
// challenge is the S256 transform per RFC 7636 Section 4.2.
func GeneratePKCEParams() (PKCEParams, error) {
	b := make([]byte, codeVerifierEntropy)
	if _, err := rand.Read(b); err != nil {
		return PKCEParams{}, err
	}

	verifier := base64.RawURLEncoding.EncodeToString(b)
	return PKCEParams{
		Verifier:  verifier,
		Challenge: ComputeCodeChallenge(verifier),
	}, nil
}

// ComputeCodeChallenge computes the S256 code challenge from a code verifier:
// BASE64URL(SHA256(code_verifier)), without padding.
func ComputeCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
