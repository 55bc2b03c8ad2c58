package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"raidbot/pkg/logx"
)

// fileStore appends JSON Lines to <path>. Dependency-free default backend.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File
}

type fileRecord struct {
	At       string `json:"at"`
	Kind     string `json:"kind"`
	TimerID  int64  `json:"timer_id,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Region   string `json:"region,omitempty"`
	Link     string `json:"link,omitempty"`
	Hop      int    `json:"hop,omitempty"`
	Hops     int    `json:"hops,omitempty"`
	Duration int64  `json:"duration_s,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, file: f}, nil
}

func (s *fileStore) Append(_ context.Context, e Entry) error {
	if s == nil || s.file == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	rec := fileRecord{
		At:       e.At.Format(time.RFC3339Nano),
		Kind:     e.Kind,
		TimerID:  e.TimerID,
		Owner:    e.Owner,
		Keyword:  e.Keyword,
		Region:   e.Region,
		Link:     e.Link,
		Hop:      e.Hop,
		Hops:     e.Hops,
		Duration: int64(e.Duration / time.Second),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(b)
	return err
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
