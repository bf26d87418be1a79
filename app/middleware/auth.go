package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
)

type contextKey string

// ClaimsContextKey holds the *AdminClaims of an authenticated request
const ClaimsContextKey = contextKey("adminClaims")

// AdminClaims are the claims of an admin access token
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

const adminRole = "admin"

// IssueAdminToken signs an HS256 admin token for subject
func IssueAdminToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken verifies tokenString and returns its claims
func ParseAdminToken(tokenString, secret, issuer string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Role != adminRole {
		return nil, errors.New("token is not an admin token")
	}
	return claims, nil
}

// AdminAuth rejects requests without a valid admin Bearer token
func AdminAuth(secret, issuer string, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				unauthorized(w, r, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := ParseAdminToken(token, secret, issuer)
			if err != nil {
				log.Info("AdminAuth: rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized(w, r, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, models.ErrorResponse{Message: message})
}
