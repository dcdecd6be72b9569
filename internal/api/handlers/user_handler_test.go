package handlers_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "",
		`{"name":"A","email":"a@example.com","password":"Secret99"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@example.com", user["email"])
	assert.Equal(t, "A", user["name"])

	// The sanitized representation never includes credentials or the avatar.
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "avatar")
	assert.NotContains(t, user, "tokens")
}

func TestSignupEndpointValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name    string
		payload string
	}{
		{"missing email", `{"name":"Matheus","password":"MyPass!79"}`},
		{"invalid email", `{"name":"Matheus","email":"nope","password":"MyPass!79"}`},
		{"short password", `{"name":"Matheus","email":"m@example.com","password":"abc"}`},
		{"malformed body", `{"name":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "", tc.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "A", "a@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"a@example.com","password":"Secret99"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "A", "a@example.com")

	// Wrong password and nonexistent account are both a 400, not a 401,
	// and carry the same body.
	wrong := doJSON(t, router, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"a@example.com","password":"notreal8574"}`)
	missing := doJSON(t, router, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"noneczist@example.com","password":"notreal8574"}`)

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, wrong.Body.String(), missing.Body.String())
	assert.NotContains(t, wrong.Body.String(), "token")
}

func TestGetProfile(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "A", "a@example.com")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a@example.com", body["email"])
}

func TestGetProfileUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "A", "a@example.com")

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/users/me", token,
		`{"name":"Tester One","age":27}`)
	require.Equal(t, http.StatusOK, rec.Code)

	profile := decodeBody(t, doJSON(t, router, http.MethodGet, "/api/v1/users/me", token, ""))
	assert.Equal(t, "Tester One", profile["name"])
	assert.Equal(t, float64(27), profile["age"])
}

func TestUpdateProfileRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "A", "a@example.com")

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/users/me", token,
		`{"location":"New York"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/users/me", token, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was persisted by the rejected requests.
	profile := decodeBody(t, doJSON(t, router, http.MethodGet, "/api/v1/users/me", token, ""))
	assert.Equal(t, "A", profile["name"])
}

func TestUpdateProfileUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/users/me", "", `{"name":"Tester Two"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccount(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "A", "a@example.com")

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/users/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a@example.com", body["email"])

	// All the deleted user's tokens are invalid immediately.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccountUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t)
	tokenOne, _ := signup(t, router, "A", "a@example.com")

	login := decodeBody(t, doJSON(t, router, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"a@example.com","password":"Secret99"}`))
	tokenTwo := login["token"].(string)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/logout", tokenOne, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the presenting token was revoked.
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, router, http.MethodGet, "/api/v1/users/me", tokenOne, "").Code)
	assert.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodGet, "/api/v1/users/me", tokenTwo, "").Code)
}

func TestLogoutAll(t *testing.T) {
	router := newTestRouter(t)
	tokenOne, _ := signup(t, router, "A", "a@example.com")

	login := decodeBody(t, doJSON(t, router, http.MethodPost, "/api/v1/users/login", "",
		`{"email":"a@example.com","password":"Secret99"}`))
	tokenTwo := login["token"].(string)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/logout-all", tokenOne, "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, token := range []string{tokenOne, tokenTwo} {
		assert.Equal(t, http.StatusUnauthorized,
			doJSON(t, router, http.MethodGet, "/api/v1/users/me", token, "").Code)
	}
}

func TestAvatarLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token, user := signup(t, router, "A", "a@example.com")
	userID := user["id"].(string)

	rec := uploadAvatar(t, router, token, pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The avatar endpoint is public and serves the stored bytes back.
	get := doJSON(t, router, http.MethodGet, "/api/v1/users/"+userID+"/avatar", "", "")
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, get.Body.Bytes())

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/users/me/avatar", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	get = doJSON(t, router, http.MethodGet, "/api/v1/users/"+userID+"/avatar", "", "")
	assert.Equal(t, http.StatusNotFound, get.Code)
}

func TestAvatarUploadValidation(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "A", "a@example.com")

	t.Run("unauthenticated", func(t *testing.T) {
		rec := uploadAvatar(t, router, "", pngBytes)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong file type", func(t *testing.T) {
		rec := uploadAvatar(t, router, token, []byte("plain text, not an image"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized file", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 1<<20)...)
		rec := uploadAvatar(t, router, token, big)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAvatarForUnknownUser(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/no-such-user/avatar", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
