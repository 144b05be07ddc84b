package models

import "time"

// Meal is a single logged meal. Date and Time are kept as text in the
// DD/MM/YYYY and HH:MM encodings clients submit.
type Meal struct {
	ID          string    `json:"mealId" gorm:"column:mealId;primaryKey;type:varchar(36)"`
	UserID      string    `json:"userId" gorm:"column:userId;type:varchar(36);not null;index"`
	User        *User     `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Date        string    `json:"date" gorm:"type:text;not null"`
	Time        string    `json:"time" gorm:"type:text;not null"`
	IsOnDiet    bool      `json:"isOnDiet" gorm:"column:isOnDiet;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateMealRequest is the payload for logging a new meal. Name and
// Description must be present but may be empty.
type CreateMealRequest struct {
	Name        *string `json:"name" validate:"required"`
	UserID      string  `json:"userID" validate:"required,uuid"`
	Description *string `json:"description" validate:"required"`
	Date        string  `json:"date" validate:"required,len=10"`
	Time        string  `json:"time" validate:"required,len=5"`
	IsOnDiet    *bool   `json:"isOnDiet" validate:"required"`
}

// MealPatch carries the fields of an edit. Nil fields are left untouched.
type MealPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty" validate:"omitempty,len=10"`
	Time        *string `json:"time,omitempty" validate:"omitempty,len=5"`
	IsOnDiet    *bool   `json:"isOnDiet,omitempty"`
}

// Amount wraps a single count so metrics come back as uniform collections.
type Amount struct {
	Amount int64 `json:"amount"`
}

// MealMetrics summarizes a user's diet adherence.
type MealMetrics struct {
	TotalMeals        []Amount `json:"totalMeals"`
	TotalMealsInDiet  []Amount `json:"totalMealsInDiet"`
	TotalMealsOffDiet []Amount `json:"totalMealsOffDiet"`
	BestSequence      []Amount `json:"bestSequence"`
}
