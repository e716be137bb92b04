package models

import "time"

// UserProfile is the applicant data the engine reads to fill application forms.
type UserProfile struct {
	UserID              string   `json:"user_id"`
	FullName            string   `json:"full_name"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	Location            string   `json:"location"`
	CurrentPosition     string   `json:"current_position"`
	YearsOfExperience   int      `json:"years_of_experience"`
	Skills              []string `json:"skills"`
	Summary             string   `json:"summary"`
	LinkedInURL         string   `json:"linkedin_url"`
	WebsiteURL          string   `json:"website_url"`
	CoverLetterTemplate string   `json:"cover_letter_template"`
}

// DisplayName falls back to first + last when no full name is stored.
func (p *UserProfile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	return name
}

type JobListing struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	URL         string     `json:"source_url"`
	Description string     `json:"description,omitempty"`
	PostedDate  string     `json:"posted_date,omitempty"`
	MatchScore  int        `json:"match_score"`
	ScrapedAt   *time.Time `json:"scraped_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
