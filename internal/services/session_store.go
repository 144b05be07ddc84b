package services

import (
	"errors"
	"fmt"
	"time"

	"dietlog/internal/models"
	"dietlog/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionStore issues and resolves login sessions. The session identifier is
// a random UUID kept on the user row; callers receive it wrapped in a signed
// token so a tampered cookie is rejected before any lookup.
type SessionStore struct {
	userRepo repositories.UserRepository
	secret   []byte
	ttl      time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(userRepo repositories.UserRepository, secret string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		userRepo: userRepo,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// TTL is how long an issued token stays valid.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// CreateSession replaces the user's session with a fresh one and returns the
// token for it. Any token issued earlier for the user stops resolving.
func (s *SessionStore) CreateSession(userID string) (string, error) {
	sessionID := uuid.New().String()
	if err := s.userRepo.UpdateSession(userID, sessionID); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sessionID,
		"sub": userID,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// ResolveSession returns the user bound to token, or ErrInvalidSession.
func (s *SessionStore) ResolveSession(tokenString string) (*models.User, error) {
	sessionID, err := s.sessionID(tokenString)
	if err != nil {
		logrus.WithError(err).Debug("Rejected session token")
		return nil, ErrInvalidSession
	}

	user, err := s.userRepo.GetBySession(sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}

func (s *SessionStore) sessionID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	sessionID, _ := claims["sid"].(string)
	if sessionID == "" {
		return "", errors.New("token carries no session")
	}
	return sessionID, nil
}
