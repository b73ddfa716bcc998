package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"studyhub/internal/config"
	"studyhub/internal/database/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieCatalog(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.user("viewer@example.com", models.RoleUser)
	_, adminToken := env.user("admin@example.com", models.RoleAdmin)

	res := env.do(http.MethodGet, "/api/v1/movies", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, list(res.Body["data"]))

	movie := map[string]interface{}{"title": "Alien", "genre": "Sci-Fi", "year": 1979, "rating": 8.5}
	res = env.do(http.MethodPost, "/api/v1/movies", movie, userToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(http.MethodPost, "/api/v1/movies", movie, adminToken)
	require.Equal(t, http.StatusCreated, res.Status)
	id := str(obj(res.Body["movie"])["id"])

	data, err := os.ReadFile(env.cfg.DataFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alien")

	res = env.do(http.MethodPost, "/api/v1/movies", map[string]interface{}{"title": "Old", "genre": "Drama", "year": 1700}, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	movie["rating"] = 9.1
	res = env.do(http.MethodPut, "/api/v1/movies/"+id, movie, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 9.1, obj(res.Body["movie"])["rating"])

	res = env.do(http.MethodGet, "/api/v1/movies?genre=sci-fi&sort_by=rating&order=desc", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, list(res.Body["data"]), 1)

	res = env.do(http.MethodDelete, "/api/v1/movies/"+id, nil, adminToken)
	assert.Equal(t, http.StatusNoContent, res.Status)
	res = env.do(http.MethodGet, "/api/v1/movies/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "movie not found", res.Body["message"])
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	u, userToken := env.user("member@example.com", models.RoleUser)
	_, adminToken := env.user("admin@example.com", models.RoleAdmin)

	res := env.do(http.MethodGet, "/api/v1/users", nil, userToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(http.MethodGet, "/api/v1/users?q=member", nil, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	data := list(res.Body["data"])
	require.Len(t, data, 1)
	assert.NotContains(t, obj(data[0]), "password")

	res = env.do(http.MethodPatch, "/api/v1/users/"+u.ID.String()+"/role", map[string]string{"role": "superuser"}, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = env.do(http.MethodPatch, "/api/v1/users/"+u.ID.String()+"/role", map[string]string{"role": "admin"}, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, models.RoleAdmin, obj(res.Body["user"])["role"])

	res = env.do(http.MethodPatch, "/api/v1/users/7d1e0c55-3b0b-4f5e-8a7e-0f4c2b1a9d88/role", map[string]string{"role": "user"}, adminToken)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = env.do(http.MethodPatch, "/api/v1/users/"+u.ID.String()+"/status", map[string]interface{}{}, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("searcher@example.com", models.RoleUser)

	env.do(http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Organic chemistry notes"}, token)
	env.do(http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Chemistry lab"}, token)
	env.do(http.MethodPost, "/api/v1/reviews", map[string]interface{}{"place_name": "Chemistry building", "rating": 3, "comment": "organic smell"}, token)

	res := env.do(http.MethodGet, "/api/v1/search?q=chemistry+organic", nil, token)
	require.Equal(t, http.StatusOK, res.Status)
	results := obj(res.Body["results"])
	assert.Len(t, list(results["tasks"]), 1)
	assert.Len(t, list(results["reviews"]), 1)

	res = env.do(http.MethodGet, "/api/v1/search?q=", nil, token)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
}

func TestSearchAsAdminIncludesUnmoderatedReviews(t *testing.T) {
	env := newTestEnv(t)
	_, authorToken := env.user("author@example.com", models.RoleUser)
	_, otherToken := env.user("other@example.com", models.RoleUser)
	_, adminToken := env.user("moderator@example.com", models.RoleAdmin)

	res := env.do(http.MethodPost, "/api/v1/reviews", map[string]interface{}{"place_name": "Zebra Cafe", "rating": 4}, authorToken)
	require.Equal(t, http.StatusCreated, res.Status)

	res = env.do(http.MethodGet, "/api/v1/reviews?q=zebra", nil, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, list(res.Body["data"]), 1)

	res = env.do(http.MethodGet, "/api/v1/search?q=zebra", nil, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, list(obj(res.Body["results"])["reviews"]), 1)

	res = env.do(http.MethodGet, "/api/v1/search?q=zebra", nil, otherToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, list(obj(res.Body["results"])["reviews"]))
}

func TestPlatformEndpoints(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "up", res.Body["status"])

	res = env.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "studyhub", res.Body["name"])

	res = env.do(http.MethodGet, "/api/v1/nothing-here", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "fail", res.Body["status"])
}

// The body limit is enforced by fasthttp while reading the request, before
// Fiber routes it, so it is exercised over a real listener.
func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.BodyLimit = 512 })
	_, token := env.user("big@example.com", models.RoleUser)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.srv.Listener(ln) }()
	t.Cleanup(func() { _ = env.srv.Shutdown() })

	payload, err := json.Marshal(map[string]string{"title": strings.Repeat("x", 2048)})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+"/api/v1/tasks", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "REQUEST_ENTITY_TOO_LARGE", body["code"])
}

func TestGlobalRequestLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Limits.MaxRequests = 2 })

	for i := 0; i < 2; i++ {
		res := env.do(http.MethodGet, "/api/v1/events", nil, "")
		require.Equal(t, http.StatusOK, res.Status)
	}
	res := env.do(http.MethodGet, "/api/v1/events", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	retry, err := strconv.Atoi(res.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 900)
}

func TestLimitReachedKeepsLimiterRetryAfter(t *testing.T) {
	env := newTestEnv(t)
	app := fiber.New(fiber.Config{ErrorHandler: env.srv.errorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderRetryAfter, "7")
		return limitReached(15 * time.Minute)(c)
	})
	app.Get("/bare", limitReached(15*time.Minute))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "7", resp.Header.Get(fiber.HeaderRetryAfter))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/bare", nil))
	require.NoError(t, err)
	assert.Equal(t, "900", resp.Header.Get(fiber.HeaderRetryAfter))
}
