package retailopsserver

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	sharederrors "github.com/Apurer/go-retail-ops/internal/shared/errors"
)

const (
	// HeaderActorID names the acting user when no signing secret is configured.
	HeaderActorID = "X-Actor-ID"
	// HeaderIdempotencyKey carries the client supplied retry key.
	HeaderIdempotencyKey = "Idempotency-Key"

	actorContextKey = "retailops.actor"
)

var (
	ErrMissingActor = errors.New("missing actor identity")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Authenticator resolves the acting user for every request. With a secret it
// accepts only HS256 bearer tokens and uses their subject; without one it trusts
// the X-Actor-ID header.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware aborts with 401 when no actor can be established.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := a.actor(c)
		if err != nil {
			sharederrors.Respond(c, sharederrors.ErrUnauthorized.WithDetail(err.Error()))
			c.Abort()
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func (a *Authenticator) actor(c *gin.Context) (string, error) {
	if len(a.secret) == 0 {
		actor := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actor == "" {
			return "", ErrMissingActor
		}
		return actor, nil
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingActor
	}
	return a.Subject(strings.TrimPrefix(header, "Bearer "))
}

// Subject validates a token and returns its sub claim.
func (a *Authenticator) Subject(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func actorFrom(c *gin.Context) string {
	return c.GetString(actorContextKey)
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
}
