package filter

import (
	"testing"
	"time"

	"go-hopeforjob-automation/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMatchScore(t *testing.T) {
	tests := []struct {
		name     string
		job      models.JobListing
		criteria Criteria
		expected int
	}{
		{
			name:     "Perfect match",
			job:      models.JobListing{Title: "Junior Golang Developer", Description: "Docker, Kubernetes", Location: "Berlin, Germany"},
			criteria: Criteria{Keywords: "golang developer", Location: "Berlin", Entry: true},
			expected: 10,
		},
		{
			name:     "Partial title match",
			job:      models.JobListing{Title: "Golang Engineer", Location: "Remote"},
			criteria: Criteria{Keywords: "golang developer"},
			expected: 4,
		},
		{
			name:     "Senior penalty",
			job:      models.JobListing{Title: "Senior Golang Developer", Description: "5 years exp required"},
			criteria: Criteria{Keywords: "golang", Entry: true},
			expected: 0,
		},
		{
			name:     "No keywords",
			job:      models.JobListing{Title: "Backend Engineer"},
			criteria: Criteria{},
			expected: 1,
		},
		{
			name:     "Stale posting",
			job:      models.JobListing{Title: "Golang Developer", PostedDate: "2019-01-01"},
			criteria: Criteria{Keywords: "golang"},
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateMatchScore(tt.job, tt.criteria))
		})
	}
}

func TestShouldIncludeJob(t *testing.T) {
	c := Criteria{Keywords: "golang"}
	assert.True(t, ShouldIncludeJob(models.JobListing{Title: "Golang Developer"}, c, 5))
	assert.False(t, ShouldIncludeJob(models.JobListing{Title: "Java Developer"}, c, 5))
	assert.False(t, ShouldIncludeJob(models.JobListing{Title: "Golang Developer", PostedDate: "2019-01-01"}, c, 0))
}

func TestIsRecentJob(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want bool
	}{
		{"", true},
		{"Just posted", true},
		{"2026-03-01", true},
		{"2025-12-01T10:00:00Z", false},
		{"3 days ago", true},
		{"Posted 30+ days ago", true},
		{"3 months ago", false},
		{"01/03/2026", true},
		{"01/01/2025", false},
		{"2026-03-30", false},
		{"Hiring since 2025", true},
		{"Hiring since 2023", false},
		{"whenever", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRecentAt(now, tt.date, DefaultMaxAge), tt.date)
	}
}
