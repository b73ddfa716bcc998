package seed

import (
	"context"
	"path/filepath"
	"testing"

	"studyhub/internal/database/databasetest"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/database/dto"
	"studyhub/internal/jsonstore"
	"studyhub/internal/movies"
	"studyhub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestRunIsIdempotent(t *testing.T) {
	utils.HashCost = bcrypt.MinCost
	ctx := context.Background()
	db := databasetest.NewSQLite(t)
	catalog := movies.NewCatalog(jsonstore.Open(filepath.Join(t.TempDir(), "data.json")))
	s := New(db, catalog, zap.NewNop())

	require.NoError(t, s.Run(ctx))
	require.NoError(t, s.Run(ctx))

	users := repositories.NewUserRepository(db.DB())
	all, total, err := users.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	admin, err := users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, utils.CheckPasswordHash(DefaultPassword, admin.Password))

	var user1 *models.User
	for i := range all {
		if all[i].Email == "user1@example.com" {
			user1 = &all[i]
		}
	}
	require.NotNil(t, user1)
	tasks, taskTotal, err := repositories.NewTaskRepository(db.DB()).List(ctx, repositories.TaskFilter{UserID: user1.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, len(sampleTasks), taskTotal)
	assert.Len(t, tasks, len(sampleTasks))

	_, eventTotal, err := repositories.NewEventRepository(db.DB()).List(ctx, repositories.EventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, eventTotal)

	_, movieTotal, err := catalog.List(dto.MovieQuery{})
	require.NoError(t, err)
	assert.Equal(t, len(sampleMovies), movieTotal)
}
