package repositories

import (
	"errors"
	"fmt"

	"dietlog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create user with email %s: %w", user.Email, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetAll retrieves every user.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("email = ?", email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	return r.first("id = ?", id)
}

// GetBySession retrieves the user currently holding the given session.
func (r *GORMUserRepository) GetBySession(sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("user with empty session: %w", ErrRecordNotFound)
	}
	return r.first("session_id = ?", sessionID)
}

// UpdateSession overwrites the session column in a single statement.
func (r *GORMUserRepository) UpdateSession(userID, sessionID string) error {
	res := r.db.Model(&models.User{}).Where("id = ?", userID).Update("session_id", sessionID)
	if res.Error != nil {
		return fmt.Errorf("failed to update session for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", userID, ErrRecordNotFound)
	}
	return nil
}

func (r *GORMUserRepository) first(query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user matching %q: %w", arg, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get user matching %q: %w", arg, err)
	}
	return &user, nil
}
