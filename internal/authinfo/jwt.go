// Package authinfo reads display claims out of a bearer token.
package authinfo

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Claims are the token fields `auth status` shows. Signatures are not
// checked; nothing here is used for access decisions.
type Claims struct {
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Parse decodes the payload of a JWT-shaped token. ok is false for opaque
// tokens.
func Parse(token string) (Claims, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return Claims{}, false
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Claims{}, false
	}
	var payload struct {
		Email string   `json:"email"`
		Sub   string   `json:"sub"`
		Exp   *float64 `json:"exp"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return Claims{}, false
	}
	c := Claims{Email: strings.TrimSpace(payload.Email), Subject: strings.TrimSpace(payload.Sub)}
	if payload.Exp != nil && *payload.Exp > 0 {
		c.ExpiresAt = time.Unix(int64(*payload.Exp), 0).UTC()
	}
	return c, true
}

// EmailFromToken is Parse reduced to the email claim.
func EmailFromToken(token string) string {
	c, _ := Parse(token)
	return c.Email
}
