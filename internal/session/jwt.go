package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type jwtStrategy struct {
	key []byte
}

// NewJWTStrategy accepts HS256 bearer tokens signed with key. A missing or
// invalid token defers to the next strategy.
func NewJWTStrategy(key []byte) Strategy {
	return &jwtStrategy{key: key}
}

func (s *jwtStrategy) Resolve(r *http.Request) (Identity, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Identity{}, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return Identity{}, false
	}

	roles := make([]string, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, strings.ToUpper(role))
	}
	return Identity{UserID: claims.Subject, Roles: roles, Source: "jwt"}, true
}

// IssueToken signs an HS256 token for userID. Used by tooling and tests.
func IssueToken(key []byte, userID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
