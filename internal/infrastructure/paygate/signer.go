package paygate

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// The gateway only hashes parameters under its two namespaces. Everything
// else on the URL (tracking params, etc.) stays outside the signature.
const (
	prefixVPC  = "vpc_"
	prefixUser = "user_"

	// FieldSecureHash carries the signature itself and is never part of
	// its own hash input, nor is its type annotation.
	FieldSecureHash     = "vpc_SecureHash"
	FieldSecureHashType = "vpc_SecureHashType"
)

// StringToSign canonicalizes a parameter set into the exact string the
// gateway hashes: recognized-namespace keys only, sorted byte-wise,
// empty values dropped, joined as key=value pairs with '&'.
func StringToSign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if k == FieldSecureHash || k == FieldSecureHashType {
			continue
		}
		if !strings.HasPrefix(k, prefixVPC) && !strings.HasPrefix(k, prefixUser) {
			continue
		}
		if params[k] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign computes the gateway signature for params: HMAC-SHA256 over the
// canonical string, keyed by the hex-decoded merchant secret, rendered as
// uppercase hex.
func Sign(params map[string]string, secretHex string) (string, error) {
	key, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("decode gateway secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(StringToSign(params)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))), nil
}

// Verify recomputes the signature from all signable fields and compares it
// to the provided vpc_SecureHash in constant time. A missing or empty
// signature fails closed.
func Verify(params map[string]string, secretHex string) bool {
	provided, ok := params[FieldSecureHash]
	if !ok || provided == "" {
		return false
	}

	expected, err := Sign(params, secretHex)
	if err != nil {
		return false
	}

	return ConstantTimeEquals(expected, strings.ToUpper(provided))
}

// VerifyURL extracts the query parameters from a full redirect-return URL
// and verifies them. Repeated keys keep their first value, matching what
// the gateway signed.
func VerifyURL(rawURL, secretHex string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return false
	}
	return Verify(FlattenQuery(values), secretHex)
}

// FlattenQuery reduces url.Values to the single-valued map the signing
// contract is defined over.
func FlattenQuery(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

// ConstantTimeEquals compares two strings without short-circuiting on the
// first differing byte. Also used for webhook credential comparison, so
// timing must not leak the mismatch position.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
