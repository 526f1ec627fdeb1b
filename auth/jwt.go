// Package auth verifies the access tokens players present when opening a
// game connection. Tokens are issued by the account service; this package
// never signs anything.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the cookie the web client stores its access token in
const DefaultCookieName = "access_token"

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
	ErrMissingKey   = errors.New("jwt secret is required")
)

// Config controls token verification. Issuer and Audience are only checked
// when set.
type Config struct {
	Secret     string
	Issuer     string
	Audience   string
	CookieName string
}

// Verifier checks HS256 tokens and extracts the player they belong to
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	cookie string
}

// NewVerifier creates a verifier from cfg
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	cookie := cfg.CookieName
	if cookie == "" {
		cookie = DefaultCookieName
	}

	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
		cookie: cookie,
	}, nil
}

// PlayerFromRequest verifies the token carried by r and returns its player ID
func (v *Verifier) PlayerFromRequest(r *http.Request) (string, error) {
	token := TokenFromRequest(r, v.cookie)
	if token == "" {
		return "", ErrMissingToken
	}
	return v.PlayerFromToken(token)
}

// PlayerFromToken verifies token and returns its player ID
func (v *Verifier) PlayerFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	playerID := playerClaim(claims)
	if playerID == "" {
		return "", fmt.Errorf("%w: no player claim", ErrInvalidToken)
	}
	return playerID, nil
}

// TokenFromRequest returns the bearer token, else the cookie, else the
// access_token query parameter browsers use for WebSocket upgrades.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("access_token")
}

// playerClaim reads userId, which account services emit as an integer or a
// string, and falls back to sub. A non-integer userId names no player.
func playerClaim(claims jwt.MapClaims) string {
	switch id := claims["userId"].(type) {
	case string:
		if id != "" {
			return id
		}
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return ""
		}
		return strconv.FormatInt(n, 10)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
