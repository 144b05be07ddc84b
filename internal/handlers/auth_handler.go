package handlers

import (
	"time"

	"dietlog/internal/middleware"
	"dietlog/internal/models"
	"dietlog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for users and sessions.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the user routes. limit guards the unauthenticated
// endpoints; requireSession guards the rest.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limit, requireSession fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/", limit, h.HandleRegister)
	userRoutes.Post("/login", limit, h.HandleLogin)
	userRoutes.Get("/", requireSession, h.HandleListUsers)
	userRoutes.Get("/me", requireSession, h.HandleMe)
	userRoutes.Get("/session/:sessionId", requireSession, h.HandleUserBySession)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logrus.WithError(err).Debug("Error parsing register request body")
		return invalidBody(c, err)
	}

	user, err := h.authService.RegisterUser(req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// HandleLogin handles user login and sets the session cookie.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logrus.WithError(err).Debug("Error parsing login request body")
		return invalidBody(c, err)
	}
	if err := validateParams(h.validate, req); err != nil {
		return respondError(c, err)
	}

	token, err := h.authService.LoginUser(req.Email, req.Password)
	if err != nil {
		logrus.WithError(err).Debug("Login failed")
		return respondError(c, err)
	}

	ttl := h.authService.Sessions().TTL()
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"message": "Session created",
		"token":   token,
	})
}

// HandleListUsers returns every registered user.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(middleware.SessionToken(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleMe returns the identity bound to the caller's own session.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	identity, err := h.authService.Authorize(middleware.SessionToken(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(identity)
}

type sessionParams struct {
	SessionID string `validate:"required"`
}

// HandleUserBySession resolves a session token, or a raw session identifier,
// to its user.
func (h *AuthHandler) HandleUserBySession(c *fiber.Ctx) error {
	params := sessionParams{SessionID: c.Params("sessionId")}
	if err := validateParams(h.validate, params); err != nil {
		return respondError(c, err)
	}

	identity, err := h.authService.UserBySession(middleware.SessionToken(c), params.SessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(identity)
}
