package repositories

import "dietlog/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetAll() ([]models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	GetBySession(sessionID string) (*models.User, error)
	// UpdateSession overwrites the user's session identifier.
	UpdateSession(userID, sessionID string) error
}
