package services

import (
	"errors"
	"fmt"

	"dietlog/internal/models"
	"dietlog/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Authorizer resolves a session token to the caller's identity.
type Authorizer interface {
	Authorize(token string) (*models.UserIdentity, error)
}

// AuthService handles registration, login and session checks.
type AuthService struct {
	userRepo repositories.UserRepository
	sessions *SessionStore
	validate *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, sessions *SessionStore) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Sessions exposes the store so the transport can size cookie lifetimes.
func (s *AuthService) Sessions() *SessionStore { return s.sessions }

// RegisterUser validates the request, hashes the password and saves the user.
// An email that is already registered is rejected with ErrEmailTaken.
func (s *AuthService) RegisterUser(req models.RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError(err)
	}

	if _, err := s.userRepo.GetByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("email '%s': %w", req.Email, ErrEmailTaken)
	} else if !errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("email '%s': %w", req.Email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	logrus.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// LoginUser checks the credentials and starts a new session, returning its
// token. Unknown email and wrong password are reported identically.
func (s *AuthService) LoginUser(email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.CreateSession(user.ID)
	if err != nil {
		return "", err
	}
	logrus.WithField("user_id", user.ID).Info("Session created")
	return token, nil
}

// Authorize is the gate in front of every meal and user operation.
func (s *AuthService) Authorize(token string) (*models.UserIdentity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.sessions.ResolveSession(token)
	if err != nil {
		return nil, err
	}
	return &models.UserIdentity{ID: user.ID, Name: user.Name}, nil
}

// ListUsers returns every registered user.
func (s *AuthService) ListUsers(token string) ([]models.User, error) {
	if _, err := s.Authorize(token); err != nil {
		return nil, err
	}
	return s.userRepo.GetAll()
}

// UserBySession looks up who currently holds a session. sessionRef is either
// the token returned by LoginUser or a raw stored session identifier.
func (s *AuthService) UserBySession(token, sessionRef string) (*models.UserIdentity, error) {
	if _, err := s.Authorize(token); err != nil {
		return nil, err
	}

	var (
		user *models.User
		err  error
	)
	if _, parseErr := uuid.Parse(sessionRef); parseErr == nil {
		user, err = s.userRepo.GetBySession(sessionRef)
	} else {
		user, err = s.sessions.ResolveSession(sessionRef)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) || errors.Is(err, ErrInvalidSession) {
			return nil, fmt.Errorf("session %s: %w", sessionRef, ErrNotFound)
		}
		return nil, err
	}
	return &models.UserIdentity{ID: user.ID, Name: user.Name}, nil
}
