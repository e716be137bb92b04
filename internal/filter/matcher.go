// Package filter scores scraped listings against the search that found them.
package filter

import (
	"regexp"
	"strings"

	"go-hopeforjob-automation/internal/models"
)

var (
	includeRegex    = regexp.MustCompile(`(?i)\b(fresher|intern|junior|entry[\s-]?level|graduate|trainee)\b`)
	techStackRegex  = regexp.MustCompile(`(?i)\b(docker|kubernetes|aws|gcp|microservices|rest\s*api|grpc|backend|back-end)\b`)
	experienceRegex = regexp.MustCompile(`(?i)\b([3-9]|\d{2,})\s*(\+|plus)?\s*(years?|yoe)\b`)
	remoteRegex     = regexp.MustCompile(`(?i)\b(remote|hybrid|work from home)\b`)
)

// Criteria is what the listing was searched for.
type Criteria struct {
	Keywords string
	Location string
	// Entry favours junior postings and penalises experience requirements.
	Entry bool
}

// CalculateMatchScore rates job from 0 to 10.
func CalculateMatchScore(job models.JobListing, c Criteria) int {
	score := 0
	title := strings.ToLower(job.Title)
	text := strings.ToLower(job.Title + " " + job.Description + " " + job.Company)

	//keyword coverage: title hits weigh more than body hits
	terms := strings.Fields(strings.ToLower(c.Keywords))
	inTitle, inText := 0, 0
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			inTitle++
		case strings.Contains(text, term):
			inText++
		}
	}
	if len(terms) > 0 {
		switch {
		case inTitle == len(terms):
			score += 5
		case inTitle > 0:
			score += 3
		}
		if inText > 0 {
			score += 1
		}
	}

	//location
	location := strings.ToLower(job.Location)
	if want := strings.ToLower(strings.TrimSpace(c.Location)); want != "" && strings.Contains(location, want) {
		score += 2
	} else if remoteRegex.MatchString(location) {
		score += 1
	}

	//tech stack bonus
	if techStackRegex.MatchString(text) {
		score += 1
	}

	if c.Entry {
		if includeRegex.MatchString(text) {
			score += 2
		}
		if experienceRegex.MatchString(text) {
			score -= 5
		}
	}

	if !IsRecentJob(job.PostedDate, DefaultMaxAge) {
		score -= 2
	}

	if score > 10 {
		return 10
	}
	if score < 0 {
		return 0
	}
	return score
}

// ShouldIncludeJob keeps recent listings that reach minScore.
func ShouldIncludeJob(job models.JobListing, c Criteria, minScore int) bool {
	if !IsRecentJob(job.PostedDate, DefaultMaxAge) {
		return false
	}
	return CalculateMatchScore(job, c) >= minScore
}
