package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jayem09/coduxa-sub000/internal/auth/jwt"
)

func protected(mgr *jwt.Manager) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})
	return AuthMiddleware(mgr, zerolog.Nop())(RequireAuth(final))
}

func TestMiddleware(t *testing.T) {
	mgr := jwt.NewManager(jwt.TokenConfig{Secret: []byte("test-secret")})
	token, err := mgr.GenerateAccessToken(jwt.User{ID: "user-1234", Email: "a@b.c"})
	require.NoError(t, err)

	expired, err := jwt.NewManager(jwt.TokenConfig{Secret: []byte("test-secret"), TTL: -time.Minute}).
		GenerateAccessToken(jwt.User{ID: "user-1234"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid token", header: "Bearer " + token, status: http.StatusOK, body: "user-1234"},
		{name: "missing header", header: "", status: http.StatusUnauthorized, body: "authentication_required"},
		{name: "malformed header", header: "Token " + token, status: http.StatusUnauthorized, body: "invalid_token"},
		{name: "bad signature", header: "Bearer " + token + "x", status: http.StatusUnauthorized, body: "invalid_token"},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized, body: "token_expired"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected(mgr).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}
