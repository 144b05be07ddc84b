package repositories

import "dietlog/internal/models"

// MealRepository defines the interface for meal data access. Every operation
// except Create and GetAll is scoped by the owning user.
type MealRepository interface {
	Create(meal *models.Meal) error
	GetAll() ([]models.Meal, error)
	GetByUser(userID string) ([]models.Meal, error)
	GetOne(userID, mealID string) (*models.Meal, error)
	// UpdateWhere applies the non-nil patch fields to the meal matching
	// (userID, mealID) and reports how many rows were changed.
	UpdateWhere(userID, mealID string, patch models.MealPatch) (int64, error)
	// DeleteWhere removes the meal matching (userID, mealID) and reports how
	// many rows were removed.
	DeleteWhere(userID, mealID string) (int64, error)
	// CountWhere counts a user's meals, optionally filtered by diet flag.
	CountWhere(userID string, isOnDiet *bool) (int64, error)
}
