package ai

import (
	"context"
	"fmt"
	"strings"

	"go-hopeforjob-automation/internal/models"
)

// FieldDescriptor describes one form control the apply flow could not fill on its own.
type FieldDescriptor struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type Suggestion struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FieldResolver proposes answers for unrecognized form fields. An empty map
// means no suggestion; callers treat errors the same way.
type FieldResolver interface {
	Suggest(ctx context.Context, job *models.JobListing, profile *models.UserProfile, fields []FieldDescriptor) (map[string]Suggestion, error)
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `You fill job application forms on behalf of a candidate.
For every field you are given, answer using ONLY facts from the candidate profile and the job context.
Rules:
1. If a field has options, the value MUST be one of the options, copied exactly.
2. If the profile does not contain the answer, omit the field instead of guessing.
3. confidence is a number between 0 and 1.
4. Return ONLY a raw JSON object of the form {"answers":[{"name":"...","value":"...","confidence":0.9}]}. No markdown.`
}

// buildUserPrompt combines job context, profile summary and the field list
func buildUserPrompt(job *models.JobListing, profile *models.UserProfile, fieldsJSON string) string {
	var b strings.Builder
	if job != nil {
		fmt.Fprintf(&b, "Job: %s at %s (%s)\n", job.Title, job.Company, job.Location)
	}
	if profile != nil {
		fmt.Fprintf(&b, "Candidate: %s, %s, %d years of experience, based in %s\n",
			profile.DisplayName(), profile.CurrentPosition, profile.YearsOfExperience, profile.Location)
		if len(profile.Skills) > 0 {
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
		}
		if profile.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", profile.Summary)
		}
	}
	fmt.Fprintf(&b, "\nFields (JSON):\n%s", fieldsJSON)
	return b.String()
}

// cleanMarkdownJSON removes backticks and "json" prefix if the AI model tries to be helpful
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
