package auth

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"voxd/pkg/logger"
	"voxd/pkg/models"
	"voxd/pkg/store"
)

// Provider is the identity collaborator consumed by the rest of the system.
// Implementations may delegate to an external identity service; the local
// store-backed one below stands in for that.
type Provider interface {
	Register(email, password string) error
	Login(email, password string) (models.User, error)
	Logout() error
	Current() (*models.User, error)
}

var (
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike; login does not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserExists is returned when registering an already-taken email.
	ErrUserExists = errors.New("user already exists")
)

// LocalProvider keeps registered users in the key-value store with
// bcrypt-hashed credentials and persists the signed-in identity so it
// survives restarts.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

// Register creates a new user record. Duplicate emails are rejected.
func (p *LocalProvider) Register(email, password string) error {
	users, err := store.LoadUsers()
	if err != nil {
		return err
	}
	if _, ok := users[email]; ok {
		return ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	users[email] = models.UserRecord{PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := store.SaveUsers(users); err != nil {
		return err
	}
	logger.Info("user_registered", zap.String("user", email))
	return nil
}

// Login verifies credentials and persists the signed-in identity.
func (p *LocalProvider) Login(email, password string) (models.User, error) {
	users, err := store.LoadUsers()
	if err != nil {
		return models.User{}, err
	}
	rec, ok := users[email]
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		logger.Warn("login_rejected", zap.String("user", email))
		return models.User{}, ErrInvalidCredentials
	}
	u := models.User{Username: email, Email: email}
	if err := store.SaveCurrentUser(u); err != nil {
		return models.User{}, err
	}
	logger.Info("user_logged_in", zap.String("user", email))
	return u, nil
}

// Logout clears the persisted signed-in identity.
func (p *LocalProvider) Logout() error {
	if err := store.ClearCurrentUser(); err != nil {
		return err
	}
	logger.Info("user_logged_out")
	return nil
}

// Current returns the persisted signed-in identity, nil when anonymous.
func (p *LocalProvider) Current() (*models.User, error) {
	return store.LoadCurrentUser()
}
