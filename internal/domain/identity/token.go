package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
)

const tokenIssuer = "med-x"

// Claims are carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"org_id,omitempty"`
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(signingKey string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{key: []byte(signingKey), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(u *User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: u.Email,
		Role:  u.Role,
	}
	if u.OrganizationID != nil {
		claims.OrganizationID = u.OrganizationID.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("parse token: missing email claim")
	}
	return claims, nil
}

// ActorMiddleware attributes audit entries to the bearer of a valid token.
// It never rejects a request: routes stay open and a missing or bad token
// leaves the default actor in place.
func ActorMiddleware(tokens *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return next(c)
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				return next(c)
			}
			c.Set("user_email", claims.Email)
			c.Set("user_role", claims.Role)
			ctx := audit.WithActor(c.Request().Context(), claims.Email)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
