package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge/taskforge-be/internal/apperr"
	"github.com/taskforge/taskforge-be/internal/models"
)

type stubSessions struct {
	user models.User
	err  error

	gotUserID string
	gotToken  string
}

func (s *stubSessions) UserBySession(_ context.Context, userID, token string) (models.User, error) {
	s.gotUserID = userID
	s.gotToken = token
	if s.err != nil {
		return models.User{}, s.err
	}
	return s.user, nil
}

func TestGenerateAndValidateToken(t *testing.T) {
	a := New("test-secret")

	token, expiresAt, err := a.GenerateToken("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := New("secret-one").GenerateToken("user-1")
	require.NoError(t, err)

	_, err = New("secret-two").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := New("test-secret").ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestMiddlewareAttachesUserAndToken(t *testing.T) {
	a := New("test-secret")
	token, _, err := a.GenerateToken("user-1")
	require.NoError(t, err)

	sessions := &stubSessions{user: models.User{ID: "user-1", Name: "A"}}

	var seenUser models.User
	var seenToken string
	handler := a.Middleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = UserFromContext(r.Context())
		seenToken, _ = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seenUser.ID)
	assert.Equal(t, token, seenToken)
	assert.Equal(t, "user-1", sessions.gotUserID)
	assert.Equal(t, token, sessions.gotToken)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	a := New("test-secret")
	handler := a.Middleware(&stubSessions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"please authenticate"}`, rec.Body.String())
}

func TestMiddlewareRejectsRevokedSession(t *testing.T) {
	a := New("test-secret")
	token, _, err := a.GenerateToken("user-1")
	require.NoError(t, err)

	sessions := &stubSessions{err: apperr.ErrAuth("please authenticate")}
	handler := a.Middleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
