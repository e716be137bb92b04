package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type seenEntry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

// Set remembers keys. With a file path it persists between runs and drops
// entries older than ttl on load.
type Set struct {
	mu       sync.Mutex
	filePath string
	ttl      time.Duration
	seen     map[string]int64
	log      *logrus.Entry
}

// New returns an in-memory set.
func New() *Set {
	return &Set{seen: make(map[string]int64)}
}

// Open loads or creates <dir>/seen_jobs.json.
func Open(dir string, ttl time.Duration, log *logrus.Entry) *Set {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).Warn("⚠️ Failed to create cache directory")
	}
	s := &Set{
		filePath: filepath.Join(dir, "seen_jobs.json"),
		ttl:      ttl,
		seen:     make(map[string]int64),
		log:      log,
	}
	s.load()
	return s
}

// Add marks key as seen and reports whether it was new.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = time.Now().UnixMilli()
	return true
}

func (s *Set) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *Set) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("⚠️ Failed to read seen_jobs.json")
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.WithError(err).Warn("⚠️ Failed to parse seen_jobs.json")
		return
	}

	cutoff := time.Now().Add(-s.ttl).UnixMilli()
	for _, e := range entries {
		if s.ttl <= 0 || e.Timestamp > cutoff {
			s.seen[e.Key] = e.Timestamp
		}
	}
	s.log.Infof("📋 Loaded %d previously seen jobs (%d expired)", len(s.seen), len(entries)-len(s.seen))
}

// Save writes the set back to disk. No-op for in-memory sets.
func (s *Set) Save() error {
	if s.filePath == "" {
		return nil
	}
	s.mu.Lock()
	entries := make([]seenEntry, 0, len(s.seen))
	for k, ts := range s.seen {
		entries = append(entries, seenEntry{Key: k, Timestamp: ts})
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return err
	}
	s.log.Infof("💾 Saved %d seen jobs to cache", len(entries))
	return nil
}
