package server

import (
	"net/http"
	"testing"

	"studyhub/internal/database/models"
	"studyhub/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewModerationWorkflow(t *testing.T) {
	env := newTestEnv(t)
	_, authorToken := env.user("author@example.com", models.RoleUser)
	_, readerToken := env.user("reader@example.com", models.RoleUser)
	_, adminToken := env.user("admin@example.com", models.RoleAdmin)

	res := env.do(http.MethodPost, "/api/v1/reviews", map[string]interface{}{
		"place_name": "Campus Cafe", "rating": 4, "comment": "Good coffee",
	}, authorToken)
	require.Equal(t, http.StatusCreated, res.Status)
	review := obj(res.Body["review"])
	id := str(review["id"])
	assert.Equal(t, models.ReviewPending, review["status"])

	res = env.do(http.MethodGet, "/api/v1/reviews/"+id, nil, readerToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(http.MethodGet, "/api/v1/reviews", nil, readerToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, list(res.Body["data"]))

	res = env.do(http.MethodPatch, "/api/v1/reviews/"+id+"/moderate", map[string]string{"status": "APPROVED"}, readerToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(http.MethodPatch, "/api/v1/reviews/"+id+"/moderate", map[string]string{"status": "APPROVED"}, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, models.ReviewApproved, obj(res.Body["review"])["status"])
	assert.Contains(t, env.pub.published(), events.ReviewModerated)

	res = env.do(http.MethodGet, "/api/v1/reviews/"+id, nil, readerToken)
	assert.Equal(t, http.StatusOK, res.Status)
	res = env.do(http.MethodGet, "/api/v1/reviews", nil, readerToken)
	assert.Len(t, list(res.Body["data"]), 1)

	update := map[string]interface{}{"place_name": "Campus Cafe", "rating": 2}
	res = env.do(http.MethodPut, "/api/v1/reviews/"+id, update, authorToken)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(http.MethodPut, "/api/v1/reviews/"+id, update, readerToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(http.MethodPut, "/api/v1/reviews/"+id, update, adminToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, models.ReviewApproved, obj(res.Body["review"])["status"])
	assert.EqualValues(t, 2, obj(res.Body["review"])["rating"])

	res = env.do(http.MethodDelete, "/api/v1/reviews/"+id, nil, readerToken)
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = env.do(http.MethodDelete, "/api/v1/reviews/"+id, nil, authorToken)
	assert.Equal(t, http.StatusNoContent, res.Status)
}

func TestReviewEditReturnsToPending(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user("editor@example.com", models.RoleUser)
	_, adminToken := env.user("admin@example.com", models.RoleAdmin)

	res := env.do(http.MethodPost, "/api/v1/reviews", map[string]interface{}{"place_name": "Gym", "rating": 3}, token)
	require.Equal(t, http.StatusCreated, res.Status)
	id := str(obj(res.Body["review"])["id"])

	res = env.do(http.MethodPatch, "/api/v1/reviews/"+id+"/moderate", map[string]string{"status": "REJECTED"}, adminToken)
	require.Equal(t, http.StatusOK, res.Status)

	res = env.do(http.MethodPut, "/api/v1/reviews/"+id, map[string]interface{}{"place_name": "Gym", "rating": 4, "comment": "Better now"}, token)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, models.ReviewPending, obj(res.Body["review"])["status"])

	res = env.do(http.MethodPost, "/api/v1/reviews", map[string]interface{}{"place_name": "Gym", "rating": 9}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = env.do(http.MethodGet, "/api/v1/reviews?mine=true&status=PENDING", nil, token)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, list(res.Body["data"]), 1)
}
