package repositories

import (
	"fmt"
	"sync"
	"time"

	"dietlog/internal/models"

	"github.com/google/uuid"
)

// InMemoryMealRepository is a map-backed implementation of MealRepository.
type InMemoryMealRepository struct {
	meals map[string]models.Meal
	order []string // insertion order
	mu    sync.RWMutex
}

// NewInMemoryMealRepository creates a new instance of InMemoryMealRepository.
func NewInMemoryMealRepository() *InMemoryMealRepository {
	return &InMemoryMealRepository{
		meals: make(map[string]models.Meal),
	}
}

// Create adds a new meal.
func (r *InMemoryMealRepository) Create(meal *models.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	if _, exists := r.meals[meal.ID]; exists {
		return fmt.Errorf("meal %s: %w", meal.ID, ErrDuplicateKey)
	}
	now := time.Now()
	meal.CreatedAt = now
	meal.UpdatedAt = now
	r.meals[meal.ID] = *meal
	r.order = append(r.order, meal.ID)
	return nil
}

// GetAll returns all meals.
func (r *InMemoryMealRepository) GetAll() ([]models.Meal, error) {
	return r.filter(func(models.Meal) bool { return true }), nil
}

// GetByUser returns the meals owned by userID.
func (r *InMemoryMealRepository) GetByUser(userID string) ([]models.Meal, error) {
	return r.filter(func(m models.Meal) bool { return m.UserID == userID }), nil
}

// GetOne returns the meal matching owner and ID.
func (r *InMemoryMealRepository) GetOne(userID, mealID string) (*models.Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meal, ok := r.meals[mealID]
	if !ok || meal.UserID != userID {
		return nil, fmt.Errorf("meal %s of user %s: %w", mealID, userID, ErrRecordNotFound)
	}
	return &meal, nil
}

// UpdateWhere applies the patch under the write lock.
func (r *InMemoryMealRepository) UpdateWhere(userID, mealID string, patch models.MealPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meal, ok := r.meals[mealID]
	if !ok || meal.UserID != userID {
		return 0, nil
	}
	if patch.Name != nil {
		meal.Name = *patch.Name
	}
	if patch.Description != nil {
		meal.Description = *patch.Description
	}
	if patch.Date != nil {
		meal.Date = *patch.Date
	}
	if patch.Time != nil {
		meal.Time = *patch.Time
	}
	if patch.IsOnDiet != nil {
		meal.IsOnDiet = *patch.IsOnDiet
	}
	meal.UpdatedAt = time.Now()
	r.meals[mealID] = meal
	return 1, nil
}

// DeleteWhere removes the meal matching owner and ID.
func (r *InMemoryMealRepository) DeleteWhere(userID, mealID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meal, ok := r.meals[mealID]
	if !ok || meal.UserID != userID {
		return 0, nil
	}
	delete(r.meals, mealID)
	for i, id := range r.order {
		if id == mealID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// CountWhere counts a user's meals, optionally by diet flag.
func (r *InMemoryMealRepository) CountWhere(userID string, isOnDiet *bool) (int64, error) {
	meals := r.filter(func(m models.Meal) bool {
		return m.UserID == userID && (isOnDiet == nil || m.IsOnDiet == *isOnDiet)
	})
	return int64(len(meals)), nil
}

func (r *InMemoryMealRepository) filter(keep func(models.Meal) bool) []models.Meal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meals := make([]models.Meal, 0, len(r.order))
	for _, id := range r.order {
		if m := r.meals[id]; keep(m) {
			meals = append(meals, m)
		}
	}
	return meals
}
