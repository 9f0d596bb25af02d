package jira

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// connectTokenTTL bounds how long a Connect JWT stays valid. Tokens are
// minted per request, so the window only needs to cover transit.
const connectTokenTTL = 3 * time.Minute

// connectClaims are the claims Atlassian Connect requires: the app key as
// issuer plus a hash of the canonical request.
type connectClaims struct {
	jwt.RegisteredClaims
	QueryStringHash string `json:"qsh"`
}

// connectToken mints a Connect JWT for a single request, signed with the
// app's shared secret.
func connectToken(appKey, secret, method string, u *url.URL) (string, error) {
	id, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := time.Now()
	claims := connectClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    appKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(connectTokenTTL)),
			ID:        id,
		},
		QueryStringHash: queryStringHash(method, u),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// queryStringHash computes the qsh claim: the SHA-256 of the canonical
// request METHOD&path&query.
func queryStringHash(method string, u *url.URL) string {
	sum := sha256.Sum256([]byte(canonicalRequest(method, u)))
	return hex.EncodeToString(sum[:])
}

func canonicalRequest(method string, u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return strings.ToUpper(method) + "&" + path + "&" + canonicalQuery(u.Query())
}

// canonicalQuery renders query parameters the way Connect expects: sorted
// by name, values percent-encoded with %20 for spaces, repeated values
// sorted and comma-joined, the jwt parameter excluded.
func canonicalQuery(values url.Values) string {
	names := make([]string, 0, len(values))
	for name := range values {
		if name == "jwt" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		vals := append([]string(nil), values[name]...)
		sort.Strings(vals)
		for j, v := range vals {
			vals[j] = connectEscape(v)
		}
		b.WriteString(connectEscape(name))
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}

// connectEscape percent-encodes per RFC 3986: spaces become %20, not '+'.
func connectEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
