package services

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"dietlog/internal/models"
)

var (
	mealDatePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	mealTimePattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// ParseMealTimestamp combines a DD/MM/YYYY date and an HH:MM time into one
// instant. Out-of-range components roll over the way time.Date normalizes
// them. Only the shape is checked; anything else is ErrMalformedTimestamp.
func ParseMealTimestamp(date, clock string) (time.Time, error) {
	d := mealDatePattern.FindStringSubmatch(date)
	if d == nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedTimestamp, date)
	}
	c := mealTimePattern.FindStringSubmatch(clock)
	if c == nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrMalformedTimestamp, clock)
	}

	day, _ := strconv.Atoi(d[1])
	month, _ := strconv.Atoi(d[2])
	year, _ := strconv.Atoi(d[3])
	hour, _ := strconv.Atoi(c[1])
	minute, _ := strconv.Atoi(c[2])

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

// BestOnDietStreak returns the longest run of consecutive on-diet meals once
// the meals are put in chronological order. The input slice is not modified.
// Meals sharing a timestamp keep their input order.
func BestOnDietStreak(meals []models.Meal) (int, error) {
	type stamped struct {
		at       time.Time
		isOnDiet bool
	}

	sorted := make([]stamped, 0, len(meals))
	for _, m := range meals {
		at, err := ParseMealTimestamp(m.Date, m.Time)
		if err != nil {
			return 0, fmt.Errorf("meal %s: %w", m.ID, err)
		}
		sorted = append(sorted, stamped{at: at, isOnDiet: m.IsOnDiet})
	}
	slices.SortStableFunc(sorted, func(a, b stamped) int {
		return a.at.Compare(b.at)
	})

	best, current := 0, 0
	for _, m := range sorted {
		if !m.isOnDiet {
			current = 0
			continue
		}
		current++
		if current > best {
			best = current
		}
	}
	return best, nil
}
