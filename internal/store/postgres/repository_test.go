package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integration test: needs a reachable postgres in DATABASE_URL
func setupRepository(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := ConnectDB(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx))
	t.Cleanup(repo.Close)
	return repo
}

func TestRepository_SessionLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	sess := &models.AutomationSession{
		UserID:   "user-" + uuid.NewString(),
		Kind:     models.KindBulkApply,
		Platform: "linkedin",
		Config:   map[string]any{"delay_between_applications": 30},
	}
	require.NoError(t, repo.CreateSession(ctx, sess))

	ok, err := repo.SetSessionStatus(ctx, sess.ID, models.SessionRunning)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetSessionStatus(ctx, sess.ID, models.SessionCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	sess.Status = models.SessionCompleted
	sess.JobsProcessed = 1
	sess.Logs = []string{"processed one job"}
	require.NoError(t, repo.UpdateSession(ctx, sess))

	got, err := repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.Status)
	assert.Equal(t, 1, got.JobsProcessed)
	assert.Equal(t, []string{"processed one job"}, got.Logs)
	assert.EqualValues(t, 30, got.Config["delay_between_applications"])

	_, err = repo.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRepository_ApplicationUniquePerUserJob(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	job := &models.JobListing{Source: "linkedin", ExternalID: uuid.NewString(), Title: "Go Engineer"}
	created, err := repo.UpsertJobListing(ctx, job)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.UpsertJobListing(ctx, job)
	require.NoError(t, err)
	assert.False(t, created)

	userID := "user-" + uuid.NewString()
	first, err := repo.GetOrCreateApplication(ctx, userID, job.ID, nil)
	require.NoError(t, err)
	first.Status = models.AppSubmitted
	now := time.Now()
	first.AppliedAt = &now
	require.NoError(t, repo.UpdateApplication(ctx, first))

	second, err := repo.GetOrCreateApplication(ctx, userID, job.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AppSubmitted, second.Status)
}
