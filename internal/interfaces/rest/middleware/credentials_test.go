package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		status  CredentialStatus
		token   string
	}{
		{
			name:    "api key header",
			headers: map[string]string{"X-Api-Key": "sk-123"},
			status:  CredentialFound,
			token:   "sk-123",
		},
		{
			name:    "bearer scheme",
			headers: map[string]string{"Authorization": "Bearer sk-123"},
			status:  CredentialFound,
			token:   "sk-123",
		},
		{
			name:    "apikey scheme case insensitive",
			headers: map[string]string{"Authorization": "APIKEY sk-123"},
			status:  CredentialFound,
			token:   "sk-123",
		},
		{
			name:    "api key header wins over authorization",
			headers: map[string]string{"X-Api-Key": "header-key", "Authorization": "Bearer other"},
			status:  CredentialFound,
			token:   "header-key",
		},
		{
			name:    "no credential at all",
			headers: nil,
			status:  CredentialAbsent,
		},
		{
			name:    "authorization without scheme",
			headers: map[string]string{"Authorization": "sk-123"},
			status:  CredentialMalformed,
		},
		{
			name:    "unknown scheme",
			headers: map[string]string{"Authorization": "Digest sk-123"},
			status:  CredentialMalformed,
		},
		{
			name:    "scheme with empty token",
			headers: map[string]string{"Authorization": "Bearer   "},
			status:  CredentialMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			cred := ExtractCredential(r)
			assert.Equal(t, tt.status, cred.Status)
			assert.Equal(t, tt.token, cred.Token)
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	assert.Equal(t, "198.51.100.9", ClientIP(r))
}
