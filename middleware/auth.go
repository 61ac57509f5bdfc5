package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

const callerKey = "caller"

type Claims struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// JWT issues and verifies HS256 bearer tokens.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate creates a signed token for user and returns it with its expiry.
func (j *JWT) Generate(user *models.User) (string, time.Time, error) {
	now := j.now()
	expires := now.Add(j.ttl)
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return token, expires, nil
}

func (j *JWT) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// CallerResolver loads the current identity behind a token subject.
type CallerResolver interface {
	Resolve(ctx context.Context, userID string) (*access.Caller, error)
}

// Authenticator gates routes on a declared requirement.
type Authenticator struct {
	jwt   *JWT
	users CallerResolver
}

func NewAuthenticator(j *JWT, users CallerResolver) *Authenticator {
	return &Authenticator{jwt: j, users: users}
}

// Require returns a handler enforcing req. Ownership cannot be decided
// before the resource is loaded, so OwnerOrAdmin only demands a caller here
// and the service finishes the check.
func (a *Authenticator) Require(req access.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if req == access.Public {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abort(c, apperrors.Unauthenticated("authorization header required (Bearer <token>)"))
			return
		}
		claims, err := a.jwt.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abort(c, apperrors.Unauthenticated("invalid or expired token"))
			return
		}
		caller, err := a.users.Resolve(c.Request.Context(), claims.UserID)
		if err != nil {
			abort(c, err)
			return
		}

		routeReq := req
		if routeReq == access.OwnerOrAdmin {
			routeReq = access.Authenticated
		}
		if err := access.Check(routeReq, caller, ""); err != nil {
			abort(c, err)
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller set by Require, or nil on public routes.
func CallerFrom(c *gin.Context) *access.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*access.Caller)
	return caller
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
