package automator

import (
	"fmt"
	"strings"

	"go-hopeforjob-automation/internal/models"
)

const DefaultCoverLetterTemplate = "Dear Hiring Manager,\n\nI am interested in the {job_title} position at {company_name}."

// GenerateCoverLetter fills {job_title}, {company_name} and {user_name}.
// It never panics and never returns an empty letter.
func GenerateCoverLetter(template string, job *models.JobListing, profile *models.UserProfile) (letter string) {
	defer func() {
		if r := recover(); r != nil || strings.TrimSpace(letter) == "" {
			letter = fallbackCoverLetter(job)
		}
	}()

	if strings.TrimSpace(template) == "" {
		template = DefaultCoverLetterTemplate
	}
	userName := ""
	if profile != nil {
		userName = profile.DisplayName()
	}
	return strings.NewReplacer(
		"{job_title}", job.Title,
		"{company_name}", job.Company,
		"{user_name}", userName,
	).Replace(template)
}

func fallbackCoverLetter(job *models.JobListing) (letter string) {
	defer func() {
		if recover() != nil {
			letter = "I am interested in this position."
		}
	}()
	title, company := "this", "your company"
	if job.Title != "" {
		title = "the " + job.Title
	}
	if job.Company != "" {
		company = job.Company
	}
	return fmt.Sprintf("I am interested in %s position at %s.", title, company)
}
