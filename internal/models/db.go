package models

import (
	"time"
)

type SessionKind string

const (
	KindScrape        SessionKind = "scrape"
	KindApply         SessionKind = "apply"
	KindBulkApply     SessionKind = "bulk_apply"
	KindProfileUpdate SessionKind = "profile_update"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending: {SessionRunning, SessionCancelled, SessionFailed},
	SessionRunning: {SessionCompleted, SessionFailed, SessionCancelled},
}

// IsTerminal reports whether no further transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// CanTransition reports whether moving from s to next is a legal session transition.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type AutomationSession struct {
	ID                    string         `json:"id"`
	UserID                string         `json:"user_id"`
	Kind                  SessionKind    `json:"session_type"`
	Status                SessionStatus  `json:"status"`
	Platform              string         `json:"platform"`
	Config                map[string]any `json:"config,omitempty"`
	TotalJobsTargeted     int            `json:"total_jobs_targeted"`
	JobsProcessed         int            `json:"jobs_processed"`
	ApplicationsSubmitted int            `json:"applications_submitted"`
	ApplicationsFailed    int            `json:"applications_failed"`
	StartedAt             *time.Time     `json:"started_at,omitempty"`
	CompletedAt           *time.Time     `json:"completed_at,omitempty"`
	Logs                  []string       `json:"logs"`
	ErrorMessage          string         `json:"error_message,omitempty"`
	Results               map[string]any `json:"results_summary,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// SuccessRate is submitted applications over processed jobs, in percent.
func (s *AutomationSession) SuccessRate() float64 {
	if s.JobsProcessed == 0 {
		return 0
	}
	return float64(s.ApplicationsSubmitted) / float64(s.JobsProcessed) * 100
}

// Duration is zero until the session has both started and completed.
func (s *AutomationSession) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

func (s *AutomationSession) AppendLog(line string) {
	s.Logs = append(s.Logs, line)
}

type ApplicationStatus string

const (
	AppPending            ApplicationStatus = "pending"
	AppSubmitted          ApplicationStatus = "submitted"
	AppInReview           ApplicationStatus = "in_review"
	AppInterviewScheduled ApplicationStatus = "interview_scheduled"
	AppRejected           ApplicationStatus = "rejected"
	AppWithdrawn          ApplicationStatus = "withdrawn"
	AppOffered            ApplicationStatus = "offered"
	AppAccepted           ApplicationStatus = "accepted"
	AppFailed             ApplicationStatus = "failed"
)

type JobApplication struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	JobID         string            `json:"job_id"`
	SessionID     *string           `json:"automation_session_id,omitempty"`
	Status        ApplicationStatus `json:"status"`
	Automated     bool              `json:"automated"`
	CoverLetter   string            `json:"cover_letter_used,omitempty"`
	CustomAnswers map[string]string `json:"custom_answers,omitempty"`
	AppliedAt     *time.Time        `json:"applied_at,omitempty"`
	FollowUpAt    *time.Time        `json:"follow_up_date,omitempty"`
	ResponseAt    *time.Time        `json:"response_date,omitempty"`
	AutomationLog []string          `json:"automation_log,omitempty"`
	ErrorDetails  string            `json:"error_details,omitempty"`
	Screenshots   []string          `json:"screenshots,omitempty"`
	LastUpdated   time.Time         `json:"last_updated"`
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
	VerificationExpired  VerificationStatus = "expired"
)

type PlatformCredentials struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Platform           string             `json:"platform"`
	Username           string             `json:"username"`
	EncryptedPassword  string             `json:"-"`
	AdditionalData     map[string]any     `json:"additional_data,omitempty"`
	IsActive           bool               `json:"is_active"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	LastVerified       *time.Time         `json:"last_verified,omitempty"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
	FieldNumber   FieldType = "number"
)

type ApplicationFormField struct {
	ID              string    `json:"id"`
	JobID           string    `json:"job_id"`
	FieldName       string    `json:"field_name"`
	FieldLabel      string    `json:"field_label"`
	FieldType       FieldType `json:"field_type"`
	Required        bool      `json:"is_required"`
	Selector        string    `json:"field_selector"`
	Options         []string  `json:"field_options,omitempty"`
	SuggestedAnswer string    `json:"ai_suggested_answer,omitempty"`
	Confidence      float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}
