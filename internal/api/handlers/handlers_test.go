package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/taskforge/taskforge-be/internal/api"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/database"
	"github.com/taskforge/taskforge-be/internal/email"
	"github.com/taskforge/taskforge-be/internal/services"
	"golang.org/x/crypto/bcrypt"
)

// pngBytes carries a real PNG signature so content sniffing accepts it.
var pngBytes = append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, []byte("fake image data")...)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	authSvc := auth.New("test-secret")
	notifier := email.NewService(email.LogSender{})
	userService := services.NewUserService(db, authSvc, notifier, bcrypt.MinCost)
	taskService := services.NewTaskService(db)

	return api.NewRouter("http://localhost:3000", authSvc, userService, taskService)
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// signup registers a user and returns the issued token and the user body.
func signup(t *testing.T, router http.Handler, name, emailAddr string) (string, map[string]any) {
	t.Helper()

	payload := `{"name":"` + name + `","email":"` + emailAddr + `","password":"Secret99"}`
	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, ok := body["token"].(string)
	require.True(t, ok, "signup response carries a token")
	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "signup response carries the user")
	return token, user
}

// uploadAvatar posts a multipart body to the avatar endpoint.
func uploadAvatar(t *testing.T, router http.Handler, token string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", "profile-pic.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
