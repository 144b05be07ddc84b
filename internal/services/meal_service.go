package services

import (
	"errors"
	"fmt"
	"time"

	"dietlog/internal/models"
	"dietlog/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventPublisher delivers meal change notifications to a broker.
type EventPublisher interface {
	PublishMealEvent(event models.MealEvent) error
}

// MealService handles business logic related to meals. Every method
// authorizes the session token before reading or writing meal data.
type MealService struct {
	guard     Authorizer
	mealRepo  repositories.MealRepository
	userRepo  repositories.UserRepository
	publisher EventPublisher // optional
	validate  *validator.Validate
}

// NewMealService creates a new MealService. publisher may be nil.
func NewMealService(guard Authorizer, mealRepo repositories.MealRepository, userRepo repositories.UserRepository, publisher EventPublisher) *MealService {
	return &MealService{
		guard:     guard,
		mealRepo:  mealRepo,
		userRepo:  userRepo,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// ListAll returns every stored meal of every user.
func (s *MealService) ListAll(token string) ([]models.Meal, error) {
	if _, err := s.guard.Authorize(token); err != nil {
		return nil, err
	}
	return s.mealRepo.GetAll()
}

// ListByUser returns the meals owned by userID. A user without meals and an
// unknown user both yield ErrNotFound.
func (s *MealService) ListByUser(token, userID string) ([]models.Meal, error) {
	if _, err := s.guard.Authorize(token); err != nil {
		return nil, err
	}
	meals, err := s.mealRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, fmt.Errorf("meals of user %s: %w", userID, ErrNotFound)
	}
	return meals, nil
}

// GetOne returns the meal matching both owner and ID.
func (s *MealService) GetOne(token, userID, mealID string) (*models.Meal, error) {
	if _, err := s.guard.Authorize(token); err != nil {
		return nil, err
	}
	meal, err := s.mealRepo.GetOne(userID, mealID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("meal %s of user %s: %w", mealID, userID, ErrNotFound)
		}
		return nil, err
	}
	return meal, nil
}

// Create logs a new meal under a freshly generated ID. The owning user is
// not looked up first; storage enforces the reference.
func (s *MealService) Create(token string, req models.CreateMealRequest) (*models.Meal, error) {
	if _, err := s.guard.Authorize(token); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError(err)
	}

	meal := &models.Meal{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Name:        *req.Name,
		Description: *req.Description,
		Date:        req.Date,
		Time:        req.Time,
		IsOnDiet:    *req.IsOnDiet,
	}
	if err := s.mealRepo.Create(meal); err != nil {
		return nil, fmt.Errorf("failed to create meal: %w", err)
	}

	s.publish(models.MealCreated, meal.UserID, meal.ID, &meal.IsOnDiet)
	return meal, nil
}

// Update applies the supplied fields to the meal matching (userID, mealID).
func (s *MealService) Update(token, userID, mealID string, patch models.MealPatch) error {
	if _, err := s.guard.Authorize(token); err != nil {
		return err
	}
	if err := s.validate.Struct(patch); err != nil {
		return NewValidationError(err)
	}

	affected, err := s.mealRepo.UpdateWhere(userID, mealID, patch)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("meal %s of user %s: %w", mealID, userID, ErrNotFound)
	}

	s.publish(models.MealUpdated, userID, mealID, patch.IsOnDiet)
	return nil
}

// Delete removes the meal matching (userID, mealID).
func (s *MealService) Delete(token, userID, mealID string) error {
	if _, err := s.guard.Authorize(token); err != nil {
		return err
	}

	affected, err := s.mealRepo.DeleteWhere(userID, mealID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("meal %s of user %s: %w", mealID, userID, ErrNotFound)
	}

	s.publish(models.MealDeleted, userID, mealID, nil)
	return nil
}

// Metrics reports meal counts and the best on-diet streak for userID.
// Unlike ListByUser, an unknown user is distinguished from one with no meals.
func (s *MealService) Metrics(token, userID string) (*models.MealMetrics, error) {
	if _, err := s.guard.Authorize(token); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	onDiet, offDiet := true, false
	total, err := s.mealRepo.CountWhere(userID, nil)
	if err != nil {
		return nil, err
	}
	inDiet, err := s.mealRepo.CountWhere(userID, &onDiet)
	if err != nil {
		return nil, err
	}
	outOfDiet, err := s.mealRepo.CountWhere(userID, &offDiet)
	if err != nil {
		return nil, err
	}

	meals, err := s.mealRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	best, err := BestOnDietStreak(meals)
	if err != nil {
		return nil, err
	}

	return &models.MealMetrics{
		TotalMeals:        []models.Amount{{Amount: total}},
		TotalMealsInDiet:  []models.Amount{{Amount: inDiet}},
		TotalMealsOffDiet: []models.Amount{{Amount: outOfDiet}},
		BestSequence:      []models.Amount{{Amount: int64(best)}},
	}, nil
}

// publish is best effort; a broker failure never fails the write.
func (s *MealService) publish(eventType, userID, mealID string, isOnDiet *bool) {
	if s.publisher == nil {
		return
	}
	event := models.MealEvent{
		Type:       eventType,
		MealID:     mealID,
		UserID:     userID,
		IsOnDiet:   isOnDiet,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishMealEvent(event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":   eventType,
			"meal_id": mealID,
		}).Warn("Failed to publish meal event")
	}
}
