package offline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLPolicy_Check(t *testing.T) {
	tests := []struct {
		name    string
		policy  URLPolicy
		url     string
		allowed bool
	}{
		{"https any host", URLPolicy{}, "https://books.example.com/42.pdf", true},
		{"http rejected by default", URLPolicy{}, "http://books.example.com/42.pdf", false},
		{"http allowed when insecure", URLPolicy{AllowInsecure: true}, "http://localhost:8080/42.pdf", true},
		{"ftp rejected", URLPolicy{AllowInsecure: true}, "ftp://books.example.com/42.pdf", false},
		{"missing host", URLPolicy{}, "https:///42.pdf", false},
		{"relative url", URLPolicy{}, "/files/42.pdf", false},
		{"exact host match", URLPolicy{AllowedHosts: []string{"cdn.example.com"}}, "https://CDN.example.com/a.pdf", true},
		{"exact host mismatch", URLPolicy{AllowedHosts: []string{"cdn.example.com"}}, "https://evil.com/a.pdf", false},
		{"wildcard subdomain", URLPolicy{AllowedHosts: []string{"*.example.com"}}, "https://files.eu.example.com/a.pdf", true},
		{"wildcard does not match apex", URLPolicy{AllowedHosts: []string{"*.example.com"}}, "https://example.com/a.pdf", false},
		{"wildcard suffix trick", URLPolicy{AllowedHosts: []string{"*.example.com"}}, "https://notexample.com/a.pdf", false},
		{"blank entries ignored", URLPolicy{AllowedHosts: []string{" ", "cdn.example.com"}}, "https://cdn.example.com/a.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := tt.policy.Check(tt.url)
			if tt.allowed {
				require.NoError(t, err)
				assert.NotNil(t, u)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrURLNotAllowed))
		})
	}
}
