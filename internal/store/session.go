package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/rag-mcp/internal/model"
)

// sessionScope is the in-process, capacity-bounded store for the session
// scope (spec §4.3 "Session semantics"). Insertion order is tracked so
// that on overflow the oldest memory is evicted, independent of any later
// read access — this is deliberately a FIFO, not an LRU.
type sessionScope struct {
	mu    sync.Mutex
	cap   int
	order []string
	byID  map[string]model.Memory
}

func newSessionScope(capacity int) *sessionScope {
	if capacity <= 0 {
		capacity = 1000
	}
	return &sessionScope{
		cap:  capacity,
		byID: make(map[string]model.Memory),
	}
}

func (s *sessionScope) store(p PutParams) (*model.Memory, error) {
	now := time.Now().UTC()
	importance := p.Importance
	if importance == 0 {
		importance = model.DefaultImportanceScore
	}

	m := model.Memory{
		ID:              uuid.NewString(),
		Content:         p.Content,
		Scope:           model.ScopeSession,
		Tags:            p.Tags,
		SourceFile:      p.SourceFile,
		Language:        p.Language,
		ImportanceScore: importance,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[m.ID] = m
	s.order = append(s.order, m.ID)

	for len(s.order) > s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}

	return &m, nil
}

func (s *sessionScope) get(id string) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *sessionScope) update(id string, patch PatchParams) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.Tags != nil {
		m.Tags = patch.Tags
	}
	if patch.SourceFile != nil {
		m.SourceFile = *patch.SourceFile
	}
	if patch.Language != nil {
		m.Language = *patch.Language
	}
	if patch.Importance != nil {
		m.ImportanceScore = *patch.Importance
	}
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	s.byID[id] = m
	return &m, nil
}

func (s *sessionScope) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns the most-recently-created memories first.
func (s *sessionScope) list(limit, offset int) []model.Memory {
	if limit == 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Memory, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *sessionScope) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *sessionScope) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[string]model.Memory)
}
