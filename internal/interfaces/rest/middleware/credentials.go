package middleware

import (
	"net/http"
	"strings"
)

type CredentialStatus int

const (
	CredentialFound CredentialStatus = iota
	CredentialAbsent
	CredentialMalformed
)

// Credential is the typed result of extracting an API credential from a
// request, so callers never branch on raw header substrings.
type Credential struct {
	Status CredentialStatus
	Token  string
}

// Senders disagree on how to carry the shared secret; these are the
// conventions seen in the wild.
const (
	headerAPIKey = "X-Api-Key"

	schemeBearer = "bearer"
	schemeAPIKey = "apikey"
)

// ExtractCredential reads the webhook credential from either the dedicated
// API-key header or an Authorization header with a recognized scheme.
func ExtractCredential(r *http.Request) Credential {
	if v := r.Header.Get(headerAPIKey); v != "" {
		return Credential{Status: CredentialFound, Token: v}
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return Credential{Status: CredentialAbsent}
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok {
		return Credential{Status: CredentialMalformed}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Credential{Status: CredentialMalformed}
	}

	switch strings.ToLower(scheme) {
	case schemeBearer, schemeAPIKey:
		return Credential{Status: CredentialFound, Token: token}
	default:
		return Credential{Status: CredentialMalformed}
	}
}
