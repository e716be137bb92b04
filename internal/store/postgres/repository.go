package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type Repository struct {
	db *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// pgbouncer in transaction mode cannot hold prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

// Migrate creates the tables the engine needs. Safe to run on every start.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// ---------------- SESSION OPERATIONS ----------------

const sessionColumns = `id, user_id, session_type, status, platform, config, total_jobs_targeted, jobs_processed,
	applications_submitted, applications_failed, started_at, completed_at, logs, error_message, results_summary,
	created_at, updated_at`

func (r *Repository) CreateSession(ctx context.Context, s *models.AutomationSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.SessionPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	cfg, err := marshalJSON(s.Config)
	if err != nil {
		return err
	}
	results, err := marshalJSON(s.Results)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_sessions (id, user_id, session_type, status, platform, config, total_jobs_targeted,
			started_at, logs, results_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10::jsonb, $11)
		RETURNING updated_at`
	err = r.db.QueryRow(ctx, query, s.ID, s.UserID, s.Kind, s.Status, s.Platform, cfg, s.TotalJobsTargeted,
		s.StartedAt, nonNil(s.Logs), results, s.CreatedAt).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*models.AutomationSession, error) {
	var (
		s               models.AutomationSession
		cfg, resultsRaw []byte
	)
	query := `SELECT ` + sessionColumns + ` FROM automation_sessions WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Kind, &s.Status, &s.Platform, &cfg,
		&s.TotalJobsTargeted, &s.JobsProcessed, &s.ApplicationsSubmitted, &s.ApplicationsFailed, &s.StartedAt,
		&s.CompletedAt, &s.Logs, &s.ErrorMessage, &resultsRaw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := unmarshalJSON(cfg, &s.Config); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(resultsRaw, &s.Results); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSession writes counters, logs and results. A terminal status already
// stored is kept, so a concurrent cancellation is never overwritten.
func (r *Repository) UpdateSession(ctx context.Context, s *models.AutomationSession) error {
	results, err := marshalJSON(s.Results)
	if err != nil {
		return err
	}
	query := `
		UPDATE automation_sessions SET
			status = CASE WHEN status IN ('completed', 'failed', 'cancelled') THEN status ELSE $2 END,
			completed_at = CASE WHEN status IN ('completed', 'failed', 'cancelled') THEN completed_at ELSE $3 END,
			started_at = COALESCE(started_at, $4),
			total_jobs_targeted = $5,
			jobs_processed = $6,
			applications_submitted = $7,
			applications_failed = $8,
			logs = $9,
			error_message = $10,
			results_summary = $11::jsonb,
			updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, s.ID, s.Status, s.CompletedAt, s.StartedAt, s.TotalJobsTargeted,
		s.JobsProcessed, s.ApplicationsSubmitted, s.ApplicationsFailed, nonNil(s.Logs), s.ErrorMessage, results)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", s.ID, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) SessionStatus(ctx context.Context, id string) (models.SessionStatus, error) {
	var status models.SessionStatus
	err := r.db.QueryRow(ctx, "SELECT status FROM automation_sessions WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		return "", fmt.Errorf("failed to read session status: %w", err)
	}
	return status, nil
}

func (r *Repository) SetSessionStatus(ctx context.Context, id string, to models.SessionStatus) (bool, error) {
	var from []string
	for _, st := range []models.SessionStatus{models.SessionPending, models.SessionRunning} {
		if st.CanTransition(to) {
			from = append(from, string(st))
		}
	}
	if len(from) == 0 {
		return false, nil
	}

	query := `
		UPDATE automation_sessions SET
			status = $2,
			started_at = CASE WHEN $2 = 'running' THEN COALESCE(started_at, now()) ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1 AND status = ANY($3)`
	tag, err := r.db.Exec(ctx, query, id, string(to), from)
	if err != nil {
		return false, fmt.Errorf("failed to set session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.SessionStatus(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *Repository) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM automation_sessions WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ---------------- PROFILE & JOB OPERATIONS ----------------

func (r *Repository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	query := `
		SELECT user_id, full_name, first_name, last_name, email, phone, location, current_position,
			years_of_experience, skills, summary, linkedin_url, website_url, cover_letter_template
		FROM user_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FullName, &p.FirstName, &p.LastName, &p.Email,
		&p.Phone, &p.Location, &p.CurrentPosition, &p.YearsOfExperience, &p.Skills, &p.Summary, &p.LinkedInURL,
		&p.WebsiteURL, &p.CoverLetterTemplate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetJob(ctx context.Context, jobID string) (*models.JobListing, error) {
	var j models.JobListing
	query := `
		SELECT id, source, external_id, title, company, location, source_url, description, posted_date,
			match_score, scraped_at, created_at
		FROM job_listings WHERE id = $1`
	err := r.db.QueryRow(ctx, query, jobID).Scan(&j.ID, &j.Source, &j.ExternalID, &j.Title, &j.Company,
		&j.Location, &j.URL, &j.Description, &j.PostedDate, &j.MatchScore, &j.ScrapedAt, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}
	return &j, nil
}

// UpsertJobListing inserts a new job or updates an existing one (based on source + external_id)
func (r *Repository) UpsertJobListing(ctx context.Context, job *models.JobListing) (bool, error) {
	query := `
		INSERT INTO job_listings (source, external_id, title, company, location, source_url, description,
			posted_date, match_score, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, external_id)
		DO UPDATE SET title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location,
			source_url = EXCLUDED.source_url, match_score = EXCLUDED.match_score, scraped_at = EXCLUDED.scraped_at
		RETURNING id, created_at, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRow(ctx, query, job.Source, job.ExternalID, job.Title, job.Company, job.Location, job.URL,
		job.Description, job.PostedDate, job.MatchScore, job.ScrapedAt).Scan(&job.ID, &job.CreatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to save job: %w", err)
	}
	return inserted, nil
}

// ---------------- APPLICATION OPERATIONS ----------------

const applicationColumns = `id, user_id, job_id, automation_session_id, status, automated, cover_letter_used,
	custom_answers, applied_at, follow_up_date, response_date, automation_log, error_details, screenshots, last_updated`

// GetOrCreateApplication returns the single application for (user, job), creating it as pending.
func (r *Repository) GetOrCreateApplication(ctx context.Context, userID, jobID string, sessionID *string) (*models.JobApplication, error) {
	query := `
		INSERT INTO job_applications (user_id, job_id, automation_session_id, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (user_id, job_id)
		DO UPDATE SET automation_session_id = COALESCE(EXCLUDED.automation_session_id, job_applications.automation_session_id),
			last_updated = now()
		RETURNING ` + applicationColumns
	app, err := scanApplication(r.db.QueryRow(ctx, query, userID, jobID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert application: %w", err)
	}
	return app, nil
}

func (r *Repository) UpdateApplication(ctx context.Context, app *models.JobApplication) error {
	answers, err := marshalJSON(app.CustomAnswers)
	if err != nil {
		return err
	}
	query := `
		UPDATE job_applications SET
			status = $2, automation_session_id = $3, cover_letter_used = $4, custom_answers = $5::jsonb,
			applied_at = $6, automation_log = $7, error_details = $8, screenshots = $9, last_updated = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, app.ID, app.Status, app.SessionID, app.CoverLetter, answers, app.AppliedAt,
		nonNil(app.AutomationLog), app.ErrorDetails, nonNil(app.Screenshots))
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("application %s: %w", app.ID, store.ErrNotFound)
	}
	return nil
}

func scanApplication(row pgx.Row) (*models.JobApplication, error) {
	var (
		app     models.JobApplication
		answers []byte
	)
	err := row.Scan(&app.ID, &app.UserID, &app.JobID, &app.SessionID, &app.Status, &app.Automated,
		&app.CoverLetter, &answers, &app.AppliedAt, &app.FollowUpAt, &app.ResponseAt, &app.AutomationLog,
		&app.ErrorDetails, &app.Screenshots, &app.LastUpdated)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(answers, &app.CustomAnswers); err != nil {
		return nil, err
	}
	return &app, nil
}

// ---------------- CREDENTIAL OPERATIONS ----------------

func (r *Repository) GetCredentials(ctx context.Context, userID, platform string) (*models.PlatformCredentials, error) {
	var (
		c   models.PlatformCredentials
		aux []byte
	)
	query := `
		SELECT id, user_id, platform, username, encrypted_password, additional_data, is_active,
			verification_status, last_verified
		FROM platform_credentials
		WHERE user_id = $1 AND lower(platform) = $2 AND is_active`
	err := r.db.QueryRow(ctx, query, userID, strings.ToLower(platform)).Scan(&c.ID, &c.UserID, &c.Platform,
		&c.Username, &c.EncryptedPassword, &aux, &c.IsActive, &c.VerificationStatus, &c.LastVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credentials %s/%s: %w", userID, platform, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	if err := unmarshalJSON(aux, &c.AdditionalData); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) UpdateCredentialVerification(ctx context.Context, credID string, status models.VerificationStatus, at time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE platform_credentials SET verification_status = $1, last_verified = $2 WHERE id = $3",
		status, at, credID)
	if err != nil {
		return fmt.Errorf("failed to update credential verification: %w", err)
	}
	return nil
}

// ---------------- FORM FIELD OPERATIONS ----------------

func (r *Repository) GetFormFields(ctx context.Context, jobID string) ([]models.ApplicationFormField, error) {
	query := `
		SELECT id, job_id, field_name, field_label, field_type, is_required, field_selector, field_options,
			ai_suggested_answer, confidence_score, created_at
		FROM application_form_fields WHERE job_id = $1`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list form fields: %w", err)
	}
	defer rows.Close()

	var fields []models.ApplicationFormField
	for rows.Next() {
		var f models.ApplicationFormField
		if err := rows.Scan(&f.ID, &f.JobID, &f.FieldName, &f.FieldLabel, &f.FieldType, &f.Required, &f.Selector,
			&f.Options, &f.SuggestedAnswer, &f.Confidence, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan form field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *Repository) UpsertFormField(ctx context.Context, f *models.ApplicationFormField) error {
	query := `
		INSERT INTO application_form_fields (job_id, field_name, field_label, field_type, is_required,
			field_selector, field_options, ai_suggested_answer, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id, field_name)
		DO UPDATE SET field_label = EXCLUDED.field_label, field_type = EXCLUDED.field_type,
			is_required = EXCLUDED.is_required, field_selector = EXCLUDED.field_selector,
			field_options = EXCLUDED.field_options, ai_suggested_answer = EXCLUDED.ai_suggested_answer,
			confidence_score = EXCLUDED.confidence_score
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, f.JobID, f.FieldName, f.FieldLabel, f.FieldType, f.Required, f.Selector,
		nonNil(f.Options), f.SuggestedAnswer, f.Confidence).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert form field: %w", err)
	}
	return nil
}

// jsonb columns travel as text so they survive the exec query mode
func marshalJSON(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	s := string(data)
	return &s, nil
}

func unmarshalJSON[T any](data []byte, dst *T) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
