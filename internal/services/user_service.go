package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/taskforge/taskforge-be/internal/apperr"
	"github.com/taskforge/taskforge-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const notifyTimeout = 10 * time.Second

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, name, email, password string, age *int) (models.User, string, error)
	Login(ctx context.Context, email, password string) (models.User, string, error)
	Logout(ctx context.Context, userID, token string) error
	LogoutAll(ctx context.Context, userID string) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]json.RawMessage) (models.User, error)
	DeleteUser(ctx context.Context, id string) (models.User, error)
	SetAvatar(ctx context.Context, id string, data []byte, contentType string) error
	ClearAvatar(ctx context.Context, id string) error
	GetAvatar(ctx context.Context, id string) ([]byte, string, error)
	UserBySession(ctx context.Context, userID, token string) (models.User, error)
}

// TokenIssuer mints signed bearer tokens for a user id.
type TokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
}

// Notifier dispatches account lifecycle emails.
type Notifier interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendCancellation(ctx context.Context, to, name string) error
}

// userUpdatableFields is the allowed key set for profile PATCH requests.
// A request carrying any other key is rejected wholesale.
var userUpdatableFields = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// UserService provides business logic for user management.
type UserService struct {
	db         *sql.DB
	tokens     TokenIssuer
	notifier   Notifier
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, tokens TokenIssuer, notifier Notifier, bcryptCost int) *UserService {
	return &UserService{db: db, tokens: tokens, notifier: notifier, bcryptCost: bcryptCost}
}

// Signup validates and creates a new user, opens their first session, and
// dispatches the welcome email best-effort.
func (s *UserService) Signup(ctx context.Context, name, email, password string, age *int) (models.User, string, error) {
	if err := models.ValidateName(name); err != nil {
		return models.User{}, "", err
	}
	email, err := models.NormalizeEmail(email)
	if err != nil {
		return models.User{}, "", err
	}
	if err := models.ValidatePassword(password); err != nil {
		return models.User{}, "", err
	}
	ageVal := 0
	if age != nil {
		ageVal = *age
	}
	if err := models.ValidateAge(ageVal); err != nil {
		return models.User{}, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Age:          ageVal,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, age, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.Age, toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, "", apperr.ErrValidation("email is already in use")
		}
		return models.User{}, "", err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return models.User{}, "", err
	}

	s.notifyAsync(user.Email, user.Name, s.notifier.SendWelcome)

	user.PasswordHash = ""
	return user, token, nil
}

// Login verifies credentials and appends a new session to the user's token
// set. Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	email, err := models.NormalizeEmail(email)
	if err != nil {
		return models.User{}, "", apperr.ErrAuth("unable to login")
	}

	var user models.User
	var createdAt, updatedAt int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, age, created_at, updated_at FROM users WHERE email = ?", email)
	err = row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Age, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, "", apperr.ErrAuth("unable to login")
		}
		return models.User{}, "", err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", apperr.ErrAuth("unable to login")
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return models.User{}, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Logout removes exactly the presenting session from the user's token set.
func (s *UserService) Logout(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ? AND token = ?", userID, token)
	return err
}

// LogoutAll clears the user's entire token set.
func (s *UserService) LogoutAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	var createdAt, updatedAt int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, age, created_at, updated_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.ErrNotFound("user not found")
		}
		return models.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// UserBySession resolves the user holding the given live token. Tokens
// missing from the session table, or expired, do not authenticate.
func (s *UserService) UserBySession(ctx context.Context, userID, token string) (models.User, error) {
	var user models.User
	var createdAt, updatedAt int64
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.age, u.created_at, u.updated_at
		FROM users u
		JOIN sessions s ON s.user_id = u.id
		WHERE u.id = ? AND s.token = ? AND s.expires_at > ?`,
		userID, token, toMillis(time.Now()))
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.ErrAuth("please authenticate")
		}
		return models.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// UpdateUser applies a partial profile update. Every provided key must be in
// the allowed set; otherwise the whole request is rejected before any write.
func (s *UserService) UpdateUser(ctx context.Context, id string, fields map[string]json.RawMessage) (models.User, error) {
	for key := range fields {
		if !userUpdatableFields[key] {
			return models.User{}, apperr.ErrValidation(fmt.Sprintf("invalid update field: %s", key))
		}
	}

	var user models.User
	var createdAt, updatedAt int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, age, created_at, updated_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Age, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.ErrNotFound("user not found")
		}
		return models.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)

	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return models.User{}, apperr.ErrValidation("name must be a string")
		}
		if err := models.ValidateName(name); err != nil {
			return models.User{}, err
		}
		user.Name = name
	}
	if raw, ok := fields["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			return models.User{}, apperr.ErrValidation("email must be a string")
		}
		email, err := models.NormalizeEmail(email)
		if err != nil {
			return models.User{}, err
		}
		user.Email = email
	}
	if raw, ok := fields["password"]; ok {
		var password string
		if err := json.Unmarshal(raw, &password); err != nil {
			return models.User{}, apperr.ErrValidation("password must be a string")
		}
		if err := models.ValidatePassword(password); err != nil {
			return models.User{}, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}
	if raw, ok := fields["age"]; ok {
		var age int
		if err := json.Unmarshal(raw, &age); err != nil {
			return models.User{}, apperr.ErrValidation("age must be an integer")
		}
		if err := models.ValidateAge(age); err != nil {
			return models.User{}, err
		}
		user.Age = age
	}

	user.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, password_hash = ?, age = ?, updated_at = ? WHERE id = ?",
		user.Name, user.Email, user.PasswordHash, user.Age, toMillis(user.UpdatedAt), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.ErrValidation("email is already in use")
		}
		return models.User{}, err
	}

	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes a user. Their tasks and sessions go with them via the
// schema's cascading foreign keys, and a cancellation email is dispatched
// best-effort.
func (s *UserService) DeleteUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return models.User{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, apperr.ErrNotFound("user not found")
	}

	s.notifyAsync(user.Email, user.Name, s.notifier.SendCancellation)

	return user, nil
}

// SetAvatar stores the avatar bytes and content type on the user record.
func (s *UserService) SetAvatar(ctx context.Context, id string, data []byte, contentType string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET avatar = ?, avatar_content_type = ?, updated_at = ? WHERE id = ?",
		data, contentType, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound("user not found")
	}
	return nil
}

// ClearAvatar removes the user's stored avatar.
func (s *UserService) ClearAvatar(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET avatar = NULL, avatar_content_type = NULL, updated_at = ? WHERE id = ?",
		toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound("user not found")
	}
	return nil
}

// GetAvatar returns the raw avatar bytes and content type for a user.
func (s *UserService) GetAvatar(ctx context.Context, id string) ([]byte, string, error) {
	var avatar []byte
	var contentType sql.NullString
	row := s.db.QueryRowContext(ctx, "SELECT avatar, avatar_content_type FROM users WHERE id = ?", id)
	if err := row.Scan(&avatar, &contentType); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", apperr.ErrNotFound("avatar not found")
		}
		return nil, "", err
	}
	if len(avatar) == 0 {
		return nil, "", apperr.ErrNotFound("avatar not found")
	}
	return avatar, contentType.String, nil
}

// DeleteExpiredSessions hard-deletes session rows whose tokens have expired.
func (s *UserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", toMillis(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// openSession issues a token and appends it to the user's session set.
func (s *UserService) openSession(ctx context.Context, userID string) (string, error) {
	token, expiresAt, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions(id, user_id, token, expires_at, created_at) VALUES(?, ?, ?, ?, ?)",
		uuid.New().String(), userID, token, toMillis(expiresAt), toMillis(now))
	if err != nil {
		return "", err
	}
	return token, nil
}

// notifyAsync fires a lifecycle email without blocking or failing the
// triggering operation. Delivery errors are logged and swallowed.
func (s *UserService) notifyAsync(to, name string, send func(ctx context.Context, to, name string) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx, to, name); err != nil {
			log.Warn().Err(err).Str("email", to).Msg("Failed to send notification email")
		}
	}()
}
