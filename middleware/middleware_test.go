package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver map[string]models.UserRole

func (s stubResolver) Resolve(_ context.Context, userID string) (*access.Caller, error) {
	role, ok := s[userID]
	if !ok {
		return nil, apperrors.Unauthenticated("user not found")
	}
	return &access.Caller{UserID: userID, Role: role}, nil
}

func newTestRouter(t *testing.T, j *JWT, req access.Requirement) *gin.Engine {
	t.Helper()
	lg := zaptest.NewLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery(lg), ErrorResponder(lg, false))
	auth := NewAuthenticator(j, stubResolver{"cust": models.RoleCustomer, "root": models.RoleAdmin})
	r.GET("/guarded", auth.Require(req), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CallerFrom(c).UserID})
	})
	return r
}

func bearer(t *testing.T, j *JWT, id string, role models.UserRole) string {
	t.Helper()
	token, _, err := j.Generate(&models.User{ID: id, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func doGet(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)
	token, expires, err := j.Generate(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := j.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewJWT("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	j.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := j.Generate(&models.User{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = NewJWT("secret", time.Minute).Parse(token)
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	tests := []struct {
		name   string
		req    access.Requirement
		auth   string
		status int
	}{
		{"no header", access.Authenticated, "", http.StatusUnauthorized},
		{"not bearer", access.Authenticated, "Basic abc", http.StatusUnauthorized},
		{"garbage token", access.Authenticated, "Bearer nope", http.StatusUnauthorized},
		{"unknown user", access.Authenticated, bearer(t, j, "ghost", models.RoleAdmin), http.StatusUnauthorized},
		{"customer authenticated", access.Authenticated, bearer(t, j, "cust", models.RoleCustomer), http.StatusOK},
		{"customer owner-or-admin", access.OwnerOrAdmin, bearer(t, j, "cust", models.RoleCustomer), http.StatusOK},
		{"customer admin-only", access.AdminOnly, bearer(t, j, "cust", models.RoleCustomer), http.StatusForbidden},
		{"stale admin claim", access.AdminOnly, bearer(t, j, "cust", models.RoleAdmin), http.StatusForbidden},
		{"admin admin-only", access.AdminOnly, bearer(t, j, "root", models.RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(newTestRouter(t, j, tt.req), "/guarded", tt.auth)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestErrorResponder(t *testing.T) {
	lg := zaptest.NewLogger(t)

	for _, debug := range []bool{false, true} {
		r := gin.New()
		r.Use(ErrorResponder(lg, debug))
		r.GET("/validation", func(c *gin.Context) {
			_ = c.Error(apperrors.Validation("invalid order", apperrors.FieldError{Field: "quantity", Message: "must be positive"}))
		})
		r.GET("/store", func(c *gin.Context) {
			_ = c.Error(errors.New("disk on fire"))
		})

		rec := doGet(r, "/validation", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Error  string                 `json:"error"`
			Code   string                 `json:"code"`
			Errors []apperrors.FieldError `json:"errors"`
			Detail string                 `json:"detail"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation_error", body.Code)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "quantity", body.Errors[0].Field)

		rec = doGet(r, "/store", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body.Detail = ""
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "internal server error", body.Error)
		if debug {
			assert.Contains(t, body.Detail, "disk on fire")
		} else {
			assert.Empty(t, body.Detail)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	rec := doGet(r, "/", "")
	generated := rec.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zaptest.NewLogger(t)))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	rec := doGet(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
