package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/response"
)

const (
	// AccessTokenCookie is the cookie the web app stores the Supabase access token in.
	AccessTokenCookie = "sb-access-token"

	ginUserEmailKey = "user_email"
)

// Claims is the subset of a Supabase access token we read.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// Authenticator verifies Supabase-issued HS256 access tokens.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Authenticator {
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret not set, every request is anonymous")
	}
	return &Authenticator{secret: []byte(cfg.Auth.JWTSecret)}
}

// Parse validates signature, algorithm, expiry and subject.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// OptionalAuth resolves the user from the bearer token or the access token
// cookie. Missing or invalid tokens leave the request anonymous.
func OptionalAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := a.Parse(token)
		if err != nil {
			if log := requestLogger(c); log != nil {
				log.Debugw("ignoring invalid access token", "error", err)
			}
			c.Next()
			return
		}

		c.Set(logctx.GinUserIDKey, claims.Subject)
		c.Set(ginUserEmailKey, claims.Email)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), claims.Subject))
		if log := requestLogger(c); log != nil {
			setLogger(c, log.With("user_id", claims.Subject))
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401 and the given message.
func RequireAuth(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err(message))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *gin.Context) string { return c.GetString(logctx.GinUserIDKey) }

// UserEmail returns the email claim of the authenticated user, or "".
func UserEmail(c *gin.Context) string { return c.GetString(ginUserEmailKey) }
