package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator("s3cret")
	token, err := a.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestVerifyToken_Rejections(t *testing.T) {
	a := NewAuthenticator("s3cret")

	expired := NewAuthenticator("s3cret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	otherSecret, err := NewAuthenticator("other").IssueToken("ops", time.Hour)
	require.NoError(t, err)

	userToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StandardClaims: jwt.StandardClaims{Subject: "someone", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Role:           "user",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expiredToken,
		"other secret": otherSecret,
		"unsigned":     unsigned,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.VerifyToken(token)
			assert.Error(t, err)
		})
	}

	_, err = a.VerifyToken(userToken)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestNotConfigured(t *testing.T) {
	a := NewAuthenticator("")
	_, err := a.IssueToken("ops", time.Hour)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = a.VerifyToken("x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := NewAuthenticator("s3cret")
	token, err := a.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", a.AdminMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubject))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ops", w.Body.String())
			}
		})
	}

	t.Run("websocket upgrade reads the query token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin?token="+token, nil)
		req.Header.Set("Connection", "upgrade")
		req.Header.Set("Upgrade", "websocket")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminMiddleware_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", NewAuthenticator("").AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
