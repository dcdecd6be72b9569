package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/database"
	"github.com/taskforge/taskforge-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// recordingNotifier captures lifecycle emails on buffered channels so tests
// can wait for the fire-and-forget dispatch.
type recordingNotifier struct {
	welcome      chan string
	cancellation chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		welcome:      make(chan string, 4),
		cancellation: make(chan string, 4),
	}
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, _ string) error {
	n.welcome <- to
	return nil
}

func (n *recordingNotifier) SendCancellation(_ context.Context, to, _ string) error {
	n.cancellation <- to
	return nil
}

func waitForEmail(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case to := <-ch:
		return to
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification email")
		return ""
	}
}

func newUserService(t *testing.T, db *sql.DB) (*UserService, *recordingNotifier) {
	t.Helper()
	notifier := newRecordingNotifier()
	return NewUserService(db, auth.New("test-secret"), notifier, bcrypt.MinCost), notifier
}

func signupUser(t *testing.T, svc *UserService, name, email string) (models.User, string) {
	t.Helper()
	user, token, err := svc.Signup(context.Background(), name, email, "Secret99", nil)
	require.NoError(t, err)
	return user, token
}
