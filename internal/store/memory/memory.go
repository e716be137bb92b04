// Package memory is an in-process store.Store used by tests and local dry runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.Mutex
	sessions     map[string]*models.AutomationSession
	profiles     map[string]*models.UserProfile
	jobs         map[string]*models.JobListing
	applications map[string]*models.JobApplication
	credentials  map[string]*models.PlatformCredentials
	formFields   map[string]*models.ApplicationFormField
	now          func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions:     make(map[string]*models.AutomationSession),
		profiles:     make(map[string]*models.UserProfile),
		jobs:         make(map[string]*models.JobListing),
		applications: make(map[string]*models.JobApplication),
		credentials:  make(map[string]*models.PlatformCredentials),
		formFields:   make(map[string]*models.ApplicationFormField),
		now:          time.Now,
	}
}

// ---------------- SEEDING ----------------

func (s *Store) PutProfile(p models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = &p
}

func (s *Store) PutJob(j models.JobListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	s.jobs[j.ID] = &j
}

func (s *Store) PutCredentials(c models.PlatformCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.credentials[credKey(c.UserID, c.Platform)] = &c
}

// Applications returns a snapshot of every stored application.
func (s *Store) Applications() []models.JobApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobApplication, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, cloneApplication(a))
	}
	return out
}

func (s *Store) Jobs() []models.JobListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobListing, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// ---------------- SESSIONS ----------------

func (s *Store) CreateSession(ctx context.Context, sess *models.AutomationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = models.SessionPending
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	sess.UpdatedAt = s.now()
	cp := cloneSession(sess)
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.AutomationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	cp := cloneSession(sess)
	return &cp, nil
}

// UpdateSession never overwrites a terminal status already stored, so a
// cancellation written by another caller survives a late counter update.
func (s *Store) UpdateSession(ctx context.Context, sess *models.AutomationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sess.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", sess.ID, store.ErrNotFound)
	}
	cp := cloneSession(sess)
	if cur.Status != sess.Status && !cur.Status.CanTransition(sess.Status) {
		cp.Status = cur.Status
		cp.CompletedAt = cur.CompletedAt
	}
	cp.UpdatedAt = s.now()
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) SessionStatus(ctx context.Context, id string) (models.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return "", fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return sess.Status, nil
}

func (s *Store) SetSessionStatus(ctx context.Context, id string, to models.SessionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	if !sess.Status.CanTransition(to) {
		return false, nil
	}
	sess.Status = to
	now := s.now()
	if to == models.SessionRunning && sess.StartedAt == nil {
		sess.StartedAt = &now
	}
	if to.IsTerminal() {
		sess.CompletedAt = &now
	}
	sess.UpdatedAt = now
	return true, nil
}

func (s *Store) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---------------- COLLABORATOR DATA ----------------

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*models.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	cp := *j
	return &cp, nil
}

func (s *Store) UpsertJobListing(ctx context.Context, job *models.JobListing) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.jobs {
		if existing.Source == job.Source && existing.ExternalID == job.ExternalID {
			existing.Title = job.Title
			existing.Company = job.Company
			existing.Location = job.Location
			existing.URL = job.URL
			existing.MatchScore = job.MatchScore
			existing.ScrapedAt = job.ScrapedAt
			job.ID = existing.ID
			job.CreatedAt = existing.CreatedAt
			return false, nil
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = s.now()
	cp := *job
	s.jobs[job.ID] = &cp
	return true, nil
}

// ---------------- APPLICATIONS ----------------

func (s *Store) GetOrCreateApplication(ctx context.Context, userID, jobID string, sessionID *string) (*models.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.UserID == userID && a.JobID == jobID {
			if sessionID != nil {
				sid := *sessionID
				a.SessionID = &sid
			}
			a.LastUpdated = s.now()
			cp := cloneApplication(a)
			return &cp, nil
		}
	}
	app := &models.JobApplication{
		ID:          uuid.NewString(),
		UserID:      userID,
		JobID:       jobID,
		Status:      models.AppPending,
		Automated:   true,
		LastUpdated: s.now(),
	}
	if sessionID != nil {
		sid := *sessionID
		app.SessionID = &sid
	}
	s.applications[app.ID] = app
	cp := cloneApplication(app)
	return &cp, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *models.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[app.ID]; !ok {
		return fmt.Errorf("application %s: %w", app.ID, store.ErrNotFound)
	}
	app.LastUpdated = s.now()
	cp := cloneApplication(app)
	s.applications[app.ID] = &cp
	return nil
}

// ---------------- CREDENTIALS ----------------

func (s *Store) GetCredentials(ctx context.Context, userID, platform string) (*models.PlatformCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[credKey(userID, platform)]
	if !ok || !c.IsActive {
		return nil, fmt.Errorf("credentials %s/%s: %w", userID, platform, store.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateCredentialVerification(ctx context.Context, credID string, status models.VerificationStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.ID == credID {
			c.VerificationStatus = status
			c.LastVerified = &at
			return nil
		}
	}
	return fmt.Errorf("credentials %s: %w", credID, store.ErrNotFound)
}

// ---------------- FORM FIELDS ----------------

func (s *Store) GetFormFields(ctx context.Context, jobID string) ([]models.ApplicationFormField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ApplicationFormField
	for _, f := range s.formFields {
		if f.JobID == jobID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *Store) UpsertFormField(ctx context.Context, field *models.ApplicationFormField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := field.JobID + "|" + field.FieldName
	if existing, ok := s.formFields[key]; ok {
		field.ID = existing.ID
		field.CreatedAt = existing.CreatedAt
	} else {
		field.ID = uuid.NewString()
		field.CreatedAt = s.now()
	}
	cp := *field
	s.formFields[key] = &cp
	return nil
}

func credKey(userID, platform string) string {
	return userID + "|" + strings.ToLower(platform)
}

func cloneSession(s *models.AutomationSession) models.AutomationSession {
	cp := *s
	cp.Logs = append([]string(nil), s.Logs...)
	if s.Results != nil {
		cp.Results = make(map[string]any, len(s.Results))
		for k, v := range s.Results {
			cp.Results[k] = v
		}
	}
	return cp
}

func cloneApplication(a *models.JobApplication) models.JobApplication {
	cp := *a
	cp.AutomationLog = append([]string(nil), a.AutomationLog...)
	cp.Screenshots = append([]string(nil), a.Screenshots...)
	if a.CustomAnswers != nil {
		cp.CustomAnswers = make(map[string]string, len(a.CustomAnswers))
		for k, v := range a.CustomAnswers {
			cp.CustomAnswers[k] = v
		}
	}
	return cp
}
