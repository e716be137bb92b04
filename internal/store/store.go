// Package store is the persistence contract the automation engine writes
// sessions, applications and scraped jobs through.
package store

import (
	"context"
	"errors"
	"time"

	"go-hopeforjob-automation/internal/models"
)

var ErrNotFound = errors.New("record not found")

type Store interface {
	// sessions
	CreateSession(ctx context.Context, s *models.AutomationSession) error
	GetSession(ctx context.Context, id string) (*models.AutomationSession, error)
	UpdateSession(ctx context.Context, s *models.AutomationSession) error
	SessionStatus(ctx context.Context, id string) (models.SessionStatus, error)
	// SetSessionStatus moves the session only when the transition is legal and
	// reports whether the write happened.
	SetSessionStatus(ctx context.Context, id string, to models.SessionStatus) (bool, error)
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// collaborator data
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetJob(ctx context.Context, jobID string) (*models.JobListing, error)
	// UpsertJobListing keys on (source, external_id) and reports whether the row is new.
	UpsertJobListing(ctx context.Context, job *models.JobListing) (bool, error)

	// applications
	GetOrCreateApplication(ctx context.Context, userID, jobID string, sessionID *string) (*models.JobApplication, error)
	UpdateApplication(ctx context.Context, app *models.JobApplication) error

	// credentials
	GetCredentials(ctx context.Context, userID, platform string) (*models.PlatformCredentials, error)
	UpdateCredentialVerification(ctx context.Context, credID string, status models.VerificationStatus, at time.Time) error

	// form field cache
	GetFormFields(ctx context.Context, jobID string) ([]models.ApplicationFormField, error)
	UpsertFormField(ctx context.Context, field *models.ApplicationFormField) error
}
