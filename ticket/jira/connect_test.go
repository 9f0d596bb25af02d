package jira

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestCanonicalRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		rawurl string
		want   string
	}{
		{
			name:   "no query",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/api/2/issue",
			want:   "GET&/rest/api/2/issue&",
		},
		{
			name:   "method uppercased",
			method: "post",
			rawurl: "https://example.atlassian.net/rest/api/2/issue",
			want:   "POST&/rest/api/2/issue&",
		},
		{
			name:   "params sorted by name",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/api/2/search?maxResults=50&jql=project%3DMOBILE",
			want:   "GET&/rest/api/2/search&jql=project%3DMOBILE&maxResults=50",
		},
		{
			name:   "spaces become percent twenty",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/api/2/search?text=hello+world",
			want:   "GET&/rest/api/2/search&text=hello%20world",
		},
		{
			name:   "jwt param excluded",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/api/2/issue?jwt=abc.def.ghi&expand=names",
			want:   "GET&/rest/api/2/issue&expand=names",
		},
		{
			name:   "repeated values sorted and comma joined",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/api/2/search?a=z&a=b",
			want:   "GET&/rest/api/2/search&a=b,z",
		},
		{
			name:   "empty path becomes root",
			method: "GET",
			rawurl: "https://example.atlassian.net",
			want:   "GET&/&",
		},
		{
			name:   "trailing slash trimmed",
			method: "GET",
			rawurl: "https://example.atlassian.net/rest/",
			want:   "GET&/rest&",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawurl)
			if err != nil {
				t.Fatalf("parse url: %v", err)
			}
			if got := canonicalRequest(tt.method, u); got != tt.want {
				t.Errorf("canonicalRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryStringHash(t *testing.T) {
	u, err := url.Parse("https://example.atlassian.net/rest/api/2/issue")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	sum := sha256.Sum256([]byte("GET&/rest/api/2/issue&"))
	want := hex.EncodeToString(sum[:])

	if got := queryStringHash(http.MethodGet, u); got != want {
		t.Errorf("queryStringHash() = %q, want %q", got, want)
	}
}

func TestConnectToken(t *testing.T) {
	const (
		appKey = "com.example.alertflow"
		secret = "shared-secret"
	)

	u, err := url.Parse("https://example.atlassian.net/rest/api/2/issue/MOBILE-1")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	tok, err := connectToken(appKey, secret, http.MethodGet, u)
	if err != nil {
		t.Fatalf("connectToken() error = %v", err)
	}

	parsed, err := jwt.ParseWithClaims(tok, &connectClaims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token not valid")
	}

	claims, ok := parsed.Claims.(*connectClaims)
	if !ok {
		t.Fatalf("claims type = %T", parsed.Claims)
	}

	if claims.Issuer != appKey {
		t.Errorf("iss = %q, want %q", claims.Issuer, appKey)
	}
	if claims.ID == "" {
		t.Error("jti is empty")
	}
	if want := queryStringHash(http.MethodGet, u); claims.QueryStringHash != want {
		t.Errorf("qsh = %q, want %q", claims.QueryStringHash, want)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != connectTokenTTL {
		t.Errorf("token lifetime = %v, want %v", got, connectTokenTTL)
	}
}

func TestConnectToken_WrongSecret(t *testing.T) {
	u, err := url.Parse("https://example.atlassian.net/rest/api/2/issue")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	tok, err := connectToken("com.example.alertflow", "shared-secret", http.MethodGet, u)
	if err != nil {
		t.Fatalf("connectToken() error = %v", err)
	}

	if _, err := jwt.ParseWithClaims(tok, &connectClaims{}, func(*jwt.Token) (any, error) {
		return []byte("other-secret"), nil
	}); err == nil {
		t.Error("parse with wrong secret succeeded, want error")
	}
}
