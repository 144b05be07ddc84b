package repositories

import (
	"fmt"
	"sync"
	"time"

	"dietlog/internal/models"

	"github.com/google/uuid"
)

// InMemoryUserRepository is a map-backed implementation of UserRepository.
type InMemoryUserRepository struct {
	users map[string]models.User
	order []string // insertion order
	mu    sync.RWMutex
}

// NewInMemoryUserRepository creates a new instance of InMemoryUserRepository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing email uniqueness like the database index.
func (r *InMemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user with email %s: %w", user.Email, ErrDuplicateKey)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, exists := r.users[user.ID]; !exists {
		r.order = append(r.order, user.ID)
	}
	r.users[user.ID] = *user
	return nil
}

// GetAll returns all users in the order they were created.
func (r *InMemoryUserRepository) GetAll() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.users[id])
	}
	return users, nil
}

// GetByEmail returns a user by email.
func (r *InMemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.find(email, func(u models.User) bool { return u.Email == email })
}

// GetByID returns a user by ID.
func (r *InMemoryUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user matching %q: %w", id, ErrRecordNotFound)
	}
	return &user, nil
}

// GetBySession returns the user currently holding sessionID.
func (r *InMemoryUserRepository) GetBySession(sessionID string) (*models.User, error) {
	return r.find(sessionID, func(u models.User) bool {
		return sessionID != "" && u.SessionID != nil && *u.SessionID == sessionID
	})
}

// UpdateSession overwrites the user's session identifier.
func (r *InMemoryUserRepository) UpdateSession(userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", userID, ErrRecordNotFound)
	}
	user.SessionID = &sessionID
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return nil
}

func (r *InMemoryUserRepository) find(key string, match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.users[id]; match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user matching %q: %w", key, ErrRecordNotFound)
}
