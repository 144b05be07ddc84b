package handlers

import (
	"dietlog/internal/middleware"
	"dietlog/internal/models"
	"dietlog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// MealHandler handles HTTP requests for meals.
type MealHandler struct {
	service  *services.MealService
	validate *validator.Validate
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(service *services.MealService) *MealHandler {
	return &MealHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the meal routes, all behind requireSession.
func (h *MealHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	mealRoutes := router.Group("/meals", requireSession)
	mealRoutes.Get("/", h.HandleListMeals)
	mealRoutes.Post("/", h.HandleCreateMeal)
	// Registered before /:userID/:mealID, which would otherwise match it.
	mealRoutes.Get("/info/:userID", h.HandleMetrics)
	mealRoutes.Get("/:userID", h.HandleListUserMeals)
	mealRoutes.Get("/:userID/:mealID", h.HandleGetMeal)
	mealRoutes.Put("/:userID/:mealID", h.HandleUpdateMeal)
	mealRoutes.Delete("/:userID/:mealID", h.HandleDeleteMeal)
}

type userParams struct {
	UserID string `validate:"required,uuid"`
}

type mealParams struct {
	UserID string `validate:"required,uuid"`
	MealID string `validate:"required,uuid"`
}

func (h *MealHandler) mealParams(c *fiber.Ctx) (mealParams, error) {
	params := mealParams{UserID: c.Params("userID"), MealID: c.Params("mealID")}
	return params, validateParams(h.validate, params)
}

// HandleListMeals returns every meal of every user.
func (h *MealHandler) HandleListMeals(c *fiber.Ctx) error {
	meals, err := h.service.ListAll(middleware.SessionToken(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(meals)
}

// HandleListUserMeals returns the meals of one user.
func (h *MealHandler) HandleListUserMeals(c *fiber.Ctx) error {
	params := userParams{UserID: c.Params("userID")}
	if err := validateParams(h.validate, params); err != nil {
		return respondError(c, err)
	}

	meals, err := h.service.ListByUser(middleware.SessionToken(c), params.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meals": meals})
}

// HandleGetMeal returns a single meal of one user.
func (h *MealHandler) HandleGetMeal(c *fiber.Ctx) error {
	params, err := h.mealParams(c)
	if err != nil {
		return respondError(c, err)
	}

	meal, err := h.service.GetOne(middleware.SessionToken(c), params.UserID, params.MealID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meal": meal})
}

// HandleCreateMeal logs a new meal.
func (h *MealHandler) HandleCreateMeal(c *fiber.Ctx) error {
	var req models.CreateMealRequest
	if err := c.BodyParser(&req); err != nil {
		logrus.WithError(err).Debug("Error parsing meal request body")
		return invalidBody(c, err)
	}

	meal, err := h.service.Create(middleware.SessionToken(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"meal": meal})
}

// HandleUpdateMeal applies a partial edit to a meal.
func (h *MealHandler) HandleUpdateMeal(c *fiber.Ctx) error {
	params, err := h.mealParams(c)
	if err != nil {
		return respondError(c, err)
	}

	var patch models.MealPatch
	if err := c.BodyParser(&patch); err != nil {
		logrus.WithError(err).Debug("Error parsing meal update body")
		return invalidBody(c, err)
	}

	if err := h.service.Update(middleware.SessionToken(c), params.UserID, params.MealID, patch); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Meal updated successfully"})
}

// HandleDeleteMeal removes a meal.
func (h *MealHandler) HandleDeleteMeal(c *fiber.Ctx) error {
	params, err := h.mealParams(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.Delete(middleware.SessionToken(c), params.UserID, params.MealID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Meal deleted successfully"})
}

// HandleMetrics returns a user's diet metrics.
func (h *MealHandler) HandleMetrics(c *fiber.Ctx) error {
	params := userParams{UserID: c.Params("userID")}
	if err := validateParams(h.validate, params); err != nil {
		return respondError(c, err)
	}

	metrics, err := h.service.Metrics(middleware.SessionToken(c), params.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(metrics)
}
