package automator

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Journal collects the human readable step log returned with every apply result.
type Journal struct {
	lines []string
	log   *logrus.Entry
}

func NewJournal(log *logrus.Entry) *Journal {
	return &Journal{log: log}
}

func (j *Journal) Add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.lines = append(j.lines, time.Now().Format("15:04:05")+" "+msg)
	j.log.Debug(msg)
}

func (j *Journal) Lines() []string {
	return append([]string(nil), j.lines...)
}
