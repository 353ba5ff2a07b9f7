package service

import "testing"

// TestSplitHealthURL проверяет разбор JWKS URL на host и путь для httpcheck.
func TestSplitHealthURL(t *testing.T) {
	tests := []struct {
		in, base, path string
		wantErr        bool
	}{
		{"http://keycloak:8080/realms/scan/protocol/openid-connect/certs", "http://keycloak:8080", "/realms/scan/protocol/openid-connect/certs", false},
		{"https://idp.example.com", "https://idp.example.com", "/", false},
		{"http://idp/jwks?kid=1", "http://idp", "/jwks?kid=1", false},
		{"not a url", "", "", true},
	}
	for _, tt := range tests {
		base, path, err := splitHealthURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("splitHealthURL(%q) err = %v", tt.in, err)
			continue
		}
		if base != tt.base || path != tt.path {
			t.Errorf("splitHealthURL(%q) = %q, %q; ожидалось %q, %q", tt.in, base, path, tt.base, tt.path)
		}
	}
}
