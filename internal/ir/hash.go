package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for fingerprint computation. The version suffix
// enables future algorithm migration.
const (
	DomainExpression = "exprlint/expr/v1"
	DomainReport     = "exprlint/report/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator
// prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExpressionFingerprint computes a stable fingerprint for an expression
// string. The text is NFC normalized first so visually identical inputs
// hash identically.
func ExpressionFingerprint(text string) string {
	return HashWithDomain(DomainExpression, []byte(norm.NFC.String(text)))
}

// Fingerprint canonically marshals v and hashes it under the given
// domain. Returns an error if v cannot be canonically marshaled.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return HashWithDomain(domain, canonical), nil
}
