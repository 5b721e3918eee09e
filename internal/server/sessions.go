package server

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"stockbot/internal/agent"
)

var ErrUnauthorized = errors.New("server: missing or unknown session token")

// conversation pairs a session with the lock that keeps it single-threaded;
// the agent mutates Session.Pending and History without locking.
type conversation struct {
	mu   sync.Mutex
	sess *agent.Session
}

// Sessions maps bearer tokens to conversations. The least recently used
// conversation is dropped when the cache is full, which logs that user out.
type Sessions struct {
	cache    *lru.Cache[string, *conversation]
	onChange func(n int)
}

func NewSessions(size int, onChange func(n int)) (*Sessions, error) {
	if size <= 0 {
		size = 256
	}
	s := &Sessions{onChange: onChange}
	cache, err := lru.NewWithEvict[string, *conversation](size, func(string, *conversation) {
		s.changed()
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Create opens a conversation for an authenticated user and returns its token.
func (s *Sessions) Create(username, role string) (string, *conversation) {
	token := uuid.NewString()
	c := &conversation{sess: agent.NewSession(token, username, role)}
	s.cache.Add(token, c)
	s.changed()
	return token, c
}

func (s *Sessions) Get(token string) (*conversation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrUnauthorized
	}
	c, ok := s.cache.Get(token)
	if !ok {
		return nil, ErrUnauthorized
	}
	return c, nil
}

// Delete ends a conversation. Unknown tokens are ignored. The eviction
// callback fires for removals too, so the gauge follows.
func (s *Sessions) Delete(token string) {
	s.cache.Remove(strings.TrimSpace(token))
}

func (s *Sessions) Len() int { return s.cache.Len() }

func (s *Sessions) changed() {
	if s.onChange != nil && s.cache != nil {
		s.onChange(s.cache.Len())
	}
}
