package models

import "time"

// Meal event types published after a successful write.
const (
	MealCreated = "meal.created"
	MealUpdated = "meal.updated"
	MealDeleted = "meal.deleted"
)

// MealEvent is the message published to the broker whenever a meal changes.
type MealEvent struct {
	Type       string    `json:"type"`
	MealID     string    `json:"mealId"`
	UserID     string    `json:"userId"`
	IsOnDiet   *bool     `json:"isOnDiet,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
