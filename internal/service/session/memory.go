package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryStore struct {
	options  Options
	sessions map[string]*Session
	mtx      sync.RWMutex
}

func (s *memoryStore) Create(ctx context.Context, draft Draft) (*Session, error) {
	if draft.Index == nil || len(draft.Passages) == 0 {
		return nil, ErrIncomplete
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := draft.ID
	if len(id) == 0 {
		id = NewID()
	}

	_, expires := s.options.TTLs[draft.Class]

	session := &Session{
		ID:        id,
		Name:      draft.Name,
		Text:      draft.Text,
		Passages:  draft.Passages,
		Index:     draft.Index,
		Class:     draft.Class,
		Owner:     draft.Owner,
		Viewable:  draft.Viewable,
		Evictable: expires,
		CreatedAt: s.options.Clock().UTC(),
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrConflict, id)
	}

	s.sessions[id] = session

	return session, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return session, nil
}

func (s *memoryStore) EvictExpired(ctx context.Context, now time.Time) int {
	s.mtx.RLock()
	candidates := make([]*Session, 0)
	for _, session := range s.sessions {
		if s.expired(session, now) {
			candidates = append(candidates, session)
		}
	}
	s.mtx.RUnlock()

	evicted := 0

	for _, candidate := range candidates {
		s.mtx.Lock()
		// the id may have been replaced since the snapshot
		if current, ok := s.sessions[candidate.ID]; ok && current == candidate && s.expired(current, now) {
			delete(s.sessions, candidate.ID)
			evicted++
		}
		s.mtx.Unlock()
	}

	if evicted > 0 {
		s.options.Logger.InfoContext(ctx, "evicted expired sessions", "count", evicted)
	}

	return evicted
}

func (s *memoryStore) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.sessions)
}

func (s *memoryStore) expired(session *Session, now time.Time) bool {
	if !session.Evictable {
		return false
	}

	ttl, ok := s.options.TTLs[session.Class]
	if !ok {
		return false
	}

	return now.Sub(session.CreatedAt) > ttl
}

func NewMemoryStore(opts ...Option) Store {
	options := NewOptions(opts...)

	return &memoryStore{
		options:  options,
		sessions: map[string]*Session{},
		mtx:      sync.RWMutex{},
	}
}
