package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "srh_chat_go_backend/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	RoleAdmin = "admin"
	issuer    = "srh-chat"

	// ContextSubject is the gin context key holding the token subject.
	ContextSubject = "adminSubject"
)

var (
	ErrNotConfigured = errors.New("admin authentication is not configured")
	ErrNotAdmin      = errors.New("token does not carry the admin role")
)

// Claims are the admin token claims.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

// Authenticator issues and verifies HS256 admin tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken mints an admin token for subject valid for ttl.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", ErrNotConfigured
	}
	now := a.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Role: RoleAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	if !a.Enabled() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// AdminMiddleware accepts a bearer token, or the token query parameter on
// websocket upgrades.
func (a *Authenticator) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())
		if !a.Enabled() {
			apperrors.HandleError(c, apperrors.New503Error("Admin API is not configured", ErrNotConfigured))
			return
		}

		var token string
		if websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				apperrors.HandleError(c, apperrors.New401Error())
				return
			}
			token = bearerToken[1]
		}
		if token == "" {
			apperrors.HandleError(c, apperrors.New401Error())
			return
		}

		claims, err := a.VerifyToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected admin token")
			if errors.Is(err, ErrNotAdmin) {
				apperrors.HandleError(c, apperrors.New403Error())
				return
			}
			apperrors.HandleError(c, apperrors.New401Error())
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}
