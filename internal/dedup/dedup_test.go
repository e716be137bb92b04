package dedup

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Add(t *testing.T) {
	s := New()
	assert.True(t, s.Add("linkedin:1"))
	assert.False(t, s.Add("linkedin:1"))
	assert.True(t, s.Has("linkedin:1"))
	assert.False(t, s.Has("linkedin:2"))
	assert.NoError(t, s.Save())
}

func TestSet_PersistsAndExpires(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)
	dir := t.TempDir()

	old := []seenEntry{
		{Key: "stale", Timestamp: time.Now().Add(-40 * 24 * time.Hour).UnixMilli()},
		{Key: "fresh", Timestamp: time.Now().Add(-time.Hour).UnixMilli()},
	}
	data, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), data, 0644))

	s := Open(dir, 30*24*time.Hour, log)
	assert.True(t, s.Has("fresh"))
	assert.False(t, s.Has("stale"))

	s.Add("new")
	require.NoError(t, s.Save())

	reloaded := Open(dir, 30*24*time.Hour, log)
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Has("new"))
}
