package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"dietlog/internal/database"
	"dietlog/internal/handlers"
	"dietlog/internal/middleware"
	"dietlog/internal/models"
	"dietlog/internal/repositories"
	"dietlog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	viper.SetDefault("SESSION_SECRET", "test_session_secret")
	viper.AutomaticEnv()

	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	userRepo := repositories.NewGORMUserRepository(db)
	mealRepo := repositories.NewGORMMealRepository(db)

	sessions := services.NewSessionStore(userRepo, viper.GetString("SESSION_SECRET"), 7*24*time.Hour)
	authService := services.NewAuthService(userRepo, sessions)
	mealService := services.NewMealService(authService, mealRepo, userRepo, nil)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	requireSession := middleware.SessionRequired()
	noLimit := func(c *fiber.Ctx) error { return c.Next() }
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, noLimit, requireSession)
	handlers.NewMealHandler(mealService).RegisterRoutes(apiV1, requireSession)
	return app
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, path, cookie string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// registerAndLogin creates a user and returns its ID and session cookie value.
func registerAndLogin(t *testing.T, app *fiber.App, email string) (string, string) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", "", map[string]string{
		"name": "Tester", "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var registered struct {
		User models.User `json:"user"`
	}
	decode(t, resp, &registered)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session string
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c.Value
			assert.Equal(t, 7*24*60*60, c.MaxAge)
			assert.Equal(t, "/", c.Path)
		}
	}
	resp.Body.Close()
	require.NotEmpty(t, session)
	return registered.User.ID, session
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	userID, session := registerAndLogin(t, app, "test@example.com")
	assert.NotEmpty(t, userID)

	// Duplicate email
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users", "", map[string]string{
		"name": "Other", "email": "test@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Invalid body
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", "", map[string]string{"name": "No email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Wrong password and unknown email look the same
	for _, creds := range []map[string]string{
		{"email": "test@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "password123"},
	} {
		resp = doJSON(t, app, http.MethodPost, "/api/v1/users/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]string
		decode(t, resp, &body)
		assert.Equal(t, "Invalid username or password", body["error"])
	}

	// Users listing hides credentials
	resp = doJSON(t, app, http.MethodGet, "/api/v1/users", session, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var users []map[string]interface{}
	decode(t, resp, &users)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "password")
	assert.NotContains(t, users[0], "session_id")
}

func TestMealEndpoints(t *testing.T) {
	app := setupApp(t)
	userID, session := registerAndLogin(t, app, "meals@example.com")

	newMeal := map[string]interface{}{
		"name":        "Oatmeal",
		"userID":      userID,
		"description": "With berries",
		"date":        "01/01/2024",
		"time":        "08:00",
		"isOnDiet":    false,
	}

	// --- Create ---
	resp := doJSON(t, app, http.MethodPost, "/api/v1/meals", session, newMeal)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Meal models.Meal `json:"meal"`
	}
	decode(t, resp, &created)
	mealID := created.Meal.ID
	require.NotEmpty(t, mealID)

	// --- Get one returns the submitted fields ---
	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/"+userID+"/"+mealID, session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched struct {
		Meal models.Meal `json:"meal"`
	}
	decode(t, resp, &fetched)
	assert.Equal(t, "Oatmeal", fetched.Meal.Name)
	assert.Equal(t, "With berries", fetched.Meal.Description)
	assert.Equal(t, "01/01/2024", fetched.Meal.Date)
	assert.Equal(t, "08:00", fetched.Meal.Time)
	assert.False(t, fetched.Meal.IsOnDiet)
	assert.Equal(t, userID, fetched.Meal.UserID)

	// --- Validation ---
	bad := map[string]interface{}{"name": "x", "userID": userID, "description": "x", "date": "1/1/24", "time": "8:00", "isOnDiet": true}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/meals", session, bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/not-a-uuid", session, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// --- Update ---
	resp = doJSON(t, app, http.MethodPut, "/api/v1/meals/"+userID+"/"+mealID, session, map[string]interface{}{"isOnDiet": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/"+userID+"/"+mealID, session, nil)
	decode(t, resp, &fetched)
	assert.True(t, fetched.Meal.IsOnDiet)
	assert.Equal(t, "Oatmeal", fetched.Meal.Name)

	missing := uuid.NewString()
	resp = doJSON(t, app, http.MethodPut, "/api/v1/meals/"+userID+"/"+missing, session, map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// --- Listing ---
	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/"+userID, session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Meals []models.Meal `json:"meals"`
	}
	decode(t, resp, &listed)
	assert.Len(t, listed.Meals, 1)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/"+uuid.NewString(), session, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals", session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Meal
	decode(t, resp, &all)
	assert.Len(t, all, 1)

	// --- Delete ---
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/meals/"+userID+"/"+mealID, session, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/meals/"+userID+"/"+mealID, session, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/"+userID+"/"+mealID, session, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(t)
	userID, session := registerAndLogin(t, app, "metrics@example.com")

	for _, m := range []struct {
		date, time string
		onDiet     bool
	}{
		{"02/01/2024", "08:00", true},
		{"01/01/2024", "18:00", false},
		{"01/01/2024", "08:00", true},
		{"01/01/2024", "12:00", true},
	} {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/meals", session, map[string]interface{}{
			"name": "m", "userID": userID, "description": "d", "date": m.date, "time": m.time, "isOnDiet": m.onDiet,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, http.MethodGet, "/api/v1/meals/info/"+userID, session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var metrics models.MealMetrics
	decode(t, resp, &metrics)
	assert.Equal(t, []models.Amount{{Amount: 4}}, metrics.TotalMeals)
	assert.Equal(t, []models.Amount{{Amount: 3}}, metrics.TotalMealsInDiet)
	assert.Equal(t, []models.Amount{{Amount: 1}}, metrics.TotalMealsOffDiet)
	assert.Equal(t, []models.Amount{{Amount: 2}}, metrics.BestSequence)

	// Unknown user
	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals/info/"+uuid.NewString(), session, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSessionEndpoints(t *testing.T) {
	app := setupApp(t)
	_, first := registerAndLogin(t, app, "session@example.com")

	// Logging in again invalidates the first session.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "session@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login map[string]string
	decode(t, resp, &login)
	second := login["token"]
	require.NotEmpty(t, second)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/meals", first, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The token is also accepted as a bearer header.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/meals", nil)
	req.Header.Set("Authorization", "Bearer "+second)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/session/"+uuid.NewString(), second, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// A replaced session no longer resolves.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/session/"+first, second, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/session/not-a-token", second, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSessionLookupWithLoginResult(t *testing.T) {
	app := setupApp(t)
	userID, cookie := registerAndLogin(t, app, "whoami@example.com")

	// The cookie value login set resolves back to its owner.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/users/session/"+cookie, cookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var identity models.UserIdentity
	decode(t, resp, &identity)
	assert.Equal(t, userID, identity.ID)
	assert.Equal(t, "Tester", identity.Name)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/me", cookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	identity = models.UserIdentity{}
	decode(t, resp, &identity)
	assert.Equal(t, userID, identity.ID)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestMealEndpointsWithoutAuth(t *testing.T) {
	app := setupApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/meals"},
		{http.MethodPost, "/api/v1/meals"},
		{http.MethodGet, "/api/v1/meals/" + uuid.NewString()},
		{http.MethodPut, "/api/v1/meals/" + uuid.NewString() + "/" + uuid.NewString()},
		{http.MethodDelete, "/api/v1/meals/" + uuid.NewString() + "/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/meals/info/" + uuid.NewString()},
	} {
		resp := doJSON(t, app, tc.method, tc.path, "", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
		resp.Body.Close()

		resp = doJSON(t, app, tc.method, tc.path, "forged-token", map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
		resp.Body.Close()
	}
}
