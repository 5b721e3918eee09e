package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"stockbot/internal/util/jsonutil"
)

// FileStore keeps the history as one JSON document that is rewritten on every append.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: strings.TrimSpace(path)}
}

func (s *FileStore) Path() string { return s.path }

// Load returns every recorded event in append order. A missing file is an empty log.
func (s *FileStore) Load(_ context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Append adds events to the end of the log.
func (s *FileStore) Append(_ context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.loadLocked()
	if err != nil {
		return err
	}
	doc := Document{Events: append(current, events...)}
	return jsonutil.WriteFileAtomic(s.path, doc)
}

func (s *FileStore) loadLocked() ([]Event, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if jsonutil.IsBlank(b) {
		return nil, nil
	}
	// Older deployments wrote a bare list instead of the wrapped document.
	if jsonutil.StartsWith(b, '[') {
		var rows []Event
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
		}
		return rows, nil
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	return doc.Events, nil
}
