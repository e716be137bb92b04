package browser

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session is one browser lifetime scoped to one run.
type Session struct {
	Page Page

	shots   *Screenshots
	log     *logrus.Entry
	closers []func() error
	once    sync.Once
	err     error
}

// NewSession wraps page; closers run in order on Close (page, context, browser).
func NewSession(page Page, shots *Screenshots, log *logrus.Entry, closers ...func() error) *Session {
	return &Session{Page: page, shots: shots, log: log, closers: closers}
}

// Close releases every resource once. Later calls return the first result.
func (s *Session) Close() error {
	s.once.Do(func() {
		var errs []error
		for _, c := range s.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		s.err = errors.Join(errs...)
		if s.err != nil {
			s.log.WithError(s.err).Warn("⚠️ Browser session closed with errors")
		}
	})
	return s.err
}

// Screenshot captures the page and returns its reference, or "" on any failure.
func (s *Session) Screenshot(name string) string {
	if s.shots == nil {
		return ""
	}
	ref, err := s.shots.Capture(s.Page, name)
	if err != nil {
		return ""
	}
	return ref
}
