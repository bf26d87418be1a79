package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testSecret = "test-secret"
	testIssuer = "mymerch"
)

func protected(t *testing.T) http.Handler {
	return AdminAuth(testSecret, testIssuer, zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(ClaimsContextKey).(*AdminClaims)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(claims.Subject))
	}))
}

func TestAdminAuth(t *testing.T) {
	valid, err := IssueAdminToken(testSecret, testIssuer, "ops@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := IssueAdminToken(testSecret, testIssuer, "ops@example.com", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := IssueAdminToken(testSecret, "someone-else", "ops@example.com", time.Hour)
	require.NoError(t, err)
	wrongSecret, err := IssueAdminToken("another-secret", testIssuer, "ops@example.com", time.Hour)
	require.NoError(t, err)
	notAdmin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role: "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic auth", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"other issuer", "Bearer " + otherIssuer, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + wrongSecret, http.StatusUnauthorized},
		{"not admin", "Bearer " + notAdmin, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(t).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ops@example.com", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"message"`)
			}
		})
	}
}

func TestParseAdminToken_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Role:             adminRole,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testIssuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAdminToken(token, testSecret, testIssuer)
	assert.Error(t, err)
}
