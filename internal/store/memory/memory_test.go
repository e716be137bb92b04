package memory

import (
	"context"
	"testing"
	"time"

	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateApplication_OnePerUserAndJob(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.GetOrCreateApplication(ctx, "u1", "j1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.AppPending, first.Status)

	first.Status = models.AppFailed
	require.NoError(t, s.UpdateApplication(ctx, first))

	sid := "session-2"
	second, err := s.GetOrCreateApplication(ctx, "u1", "j1", &sid)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AppFailed, second.Status)
	require.NotNil(t, second.SessionID)
	assert.Equal(t, sid, *second.SessionID)

	other, err := s.GetOrCreateApplication(ctx, "u2", "j1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Len(t, s.Applications(), 2)
}

func TestSetSessionStatus_TerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	s := New()
	sess := &models.AutomationSession{UserID: "u1", Kind: models.KindScrape}
	require.NoError(t, s.CreateSession(ctx, sess))

	ok, err := s.SetSessionStatus(ctx, sess.ID, models.SessionRunning)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetSessionStatus(ctx, sess.ID, models.SessionCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetSessionStatus(ctx, sess.ID, models.SessionCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
}

func TestUpdateSession_KeepsCancellation(t *testing.T) {
	ctx := context.Background()
	s := New()
	sess := &models.AutomationSession{UserID: "u1", Kind: models.KindBulkApply, Status: models.SessionRunning}
	require.NoError(t, s.CreateSession(ctx, sess))

	_, err := s.SetSessionStatus(ctx, sess.ID, models.SessionCancelled)
	require.NoError(t, err)

	sess.Status = models.SessionCompleted
	sess.JobsProcessed = 2
	require.NoError(t, s.UpdateSession(ctx, sess))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.Status)
	assert.Equal(t, 2, got.JobsProcessed)
}

func TestDeleteSessionsBefore(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	ages := []time.Duration{45 * 24 * time.Hour, 31 * 24 * time.Hour, 29 * 24 * time.Hour, time.Hour}
	for _, age := range ages {
		require.NoError(t, s.CreateSession(ctx, &models.AutomationSession{CreatedAt: now.Add(-age)}))
	}

	n, err := s.DeleteSessionsBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, s.sessions, 2)
}

func TestUpsertJobListing(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.UpsertJobListing(ctx, &models.JobListing{Source: "linkedin", ExternalID: "42", Title: "Go Dev"})
	require.NoError(t, err)
	assert.True(t, created)

	job := &models.JobListing{Source: "linkedin", ExternalID: "42", Title: "Senior Go Dev"}
	created, err = s.UpsertJobListing(ctx, job)
	require.NoError(t, err)
	assert.False(t, created)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "Senior Go Dev", jobs[0].Title)
	assert.Equal(t, jobs[0].ID, job.ID)
}

func TestGetCredentials_InactiveIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutCredentials(models.PlatformCredentials{UserID: "u1", Platform: "LinkedIn", Username: "a", IsActive: false})

	_, err := s.GetCredentials(ctx, "u1", "linkedin")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertFormField_KeyedByJobAndName(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertFormField(ctx, &models.ApplicationFormField{JobID: "j1", FieldName: "phone", SuggestedAnswer: "1"}))
	require.NoError(t, s.UpsertFormField(ctx, &models.ApplicationFormField{JobID: "j1", FieldName: "phone", SuggestedAnswer: "2"}))

	fields, err := s.GetFormFields(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "2", fields[0].SuggestedAnswer)
}
