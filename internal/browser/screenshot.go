package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// Uploader pushes a local file somewhere durable and returns its reference.
type Uploader interface {
	Upload(localPath, key string) (string, error)
}

// Screenshots writes full-page captures under dir and optionally uploads them.
type Screenshots struct {
	dir      string
	uploader Uploader
	log      *logrus.Entry
	now      func() time.Time
}

func NewScreenshots(dir string, uploader Uploader, log *logrus.Entry) *Screenshots {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).Warn("⚠️ Failed to create screenshot directory")
	}
	return &Screenshots{dir: dir, uploader: uploader, log: log, now: time.Now}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Capture returns the uploaded URL when an uploader is set and succeeds,
// otherwise the local path.
func (s *Screenshots) Capture(page Page, name string) (string, error) {
	filename := fmt.Sprintf("%s_%s.png", unsafeName.ReplaceAllString(name, "-"), s.now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(s.dir, filename)

	if err := page.Screenshot(path); err != nil {
		s.log.WithError(err).Warn("⚠️ Failed to capture screenshot")
		return "", err
	}
	s.log.Debugf("📸 Screenshot saved: %s", path)

	if s.uploader == nil {
		return path, nil
	}
	url, err := s.uploader.Upload(path, "screenshots/"+filename)
	if err != nil {
		s.log.WithError(err).Warn("⚠️ Screenshot upload failed, keeping local copy")
		return path, nil
	}
	return url, nil
}
