package automator

import "errors"

var (
	ErrNoCredentials       = errors.New("no active credentials for platform")
	ErrAuthFailed          = errors.New("login failed")
	ErrBlocked             = errors.New("blocked by anti-automation challenge")
	ErrSearchFailed        = errors.New("search could not be submitted")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrCancelled           = errors.New("run cancelled")
)

// ExternalApplyMessage is the error text for jobs that apply on the employer's site.
const ExternalApplyMessage = "external application — manual action required"

const NoApplyOptionMessage = "no apply option found"
