package repositories

import (
	"errors"
	"fmt"
	"time"

	"dietlog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMMealRepository is a GORM implementation of MealRepository.
type GORMMealRepository struct {
	db *gorm.DB
}

// NewGORMMealRepository creates a new instance of GORMMealRepository.
func NewGORMMealRepository(db *gorm.DB) *GORMMealRepository {
	return &GORMMealRepository{
		db: db,
	}
}

func ownedBy(userID string) map[string]interface{} {
	return map[string]interface{}{"userId": userID}
}

func ownedMeal(userID, mealID string) map[string]interface{} {
	return map[string]interface{}{"userId": userID, "mealId": mealID}
}

// Create inserts a new meal. The owning user is not checked here; the
// foreign key decides.
func (r *GORMMealRepository) Create(meal *models.Meal) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	if err := r.db.Create(meal).Error; err != nil {
		return fmt.Errorf("failed to create meal: %w", err)
	}
	return nil
}

// GetAll retrieves all meals regardless of owner.
func (r *GORMMealRepository) GetAll() ([]models.Meal, error) {
	var meals []models.Meal
	if err := r.db.Find(&meals).Error; err != nil {
		return nil, fmt.Errorf("failed to get all meals: %w", err)
	}
	return meals, nil
}

// GetByUser retrieves every meal owned by userID.
func (r *GORMMealRepository) GetByUser(userID string) ([]models.Meal, error) {
	var meals []models.Meal
	if err := r.db.Where(ownedBy(userID)).Find(&meals).Error; err != nil {
		return nil, fmt.Errorf("failed to get meals for user %s: %w", userID, err)
	}
	return meals, nil
}

// GetOne retrieves a single meal by owner and ID.
func (r *GORMMealRepository) GetOne(userID, mealID string) (*models.Meal, error) {
	var meal models.Meal
	if err := r.db.Where(ownedMeal(userID, mealID)).First(&meal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("meal %s of user %s: %w", mealID, userID, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get meal %s of user %s: %w", mealID, userID, err)
	}
	return &meal, nil
}

// UpdateWhere updates the supplied fields in one conditional statement.
func (r *GORMMealRepository) UpdateWhere(userID, mealID string, patch models.MealPatch) (int64, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.Time != nil {
		updates["time"] = *patch.Time
	}
	if patch.IsOnDiet != nil {
		updates["isOnDiet"] = *patch.IsOnDiet
	}

	res := r.db.Model(&models.Meal{}).Where(ownedMeal(userID, mealID)).Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update meal %s: %w", mealID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteWhere deletes the matching meal in one conditional statement.
func (r *GORMMealRepository) DeleteWhere(userID, mealID string) (int64, error) {
	res := r.db.Where(ownedMeal(userID, mealID)).Delete(&models.Meal{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete meal %s: %w", mealID, res.Error)
	}
	return res.RowsAffected, nil
}

// CountWhere counts meals owned by userID, filtered by diet flag when given.
func (r *GORMMealRepository) CountWhere(userID string, isOnDiet *bool) (int64, error) {
	var count int64
	query := r.db.Model(&models.Meal{}).Where(ownedBy(userID))
	if isOnDiet != nil {
		query = query.Where(map[string]interface{}{"isOnDiet": *isOnDiet})
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count meals for user %s: %w", userID, err)
	}
	return count, nil
}
