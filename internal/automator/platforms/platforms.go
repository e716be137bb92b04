// Package platforms lists the job boards the engine can drive.
package platforms

import (
	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/automator/indeed"
	"go-hopeforjob-automation/internal/automator/linkedin"
)

func Registry() automator.Registry {
	return automator.Registry{
		linkedin.Name: linkedin.New,
		indeed.Name:   indeed.New,
	}
}
