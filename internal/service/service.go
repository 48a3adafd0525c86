// Package service wires the scoped store to a per-scope BM25 index,
// implementing the tool-level operations the dispatcher and CLI share:
// store_memory, search_memory, list_memories, delete_memory, and
// clear_session, plus the get/update/count operations spec §4.3 names for
// the store but does not expose as dispatcher tools.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rcliao/rag-mcp/internal/bm25"
	"github.com/rcliao/rag-mcp/internal/model"
	"github.com/rcliao/rag-mcp/internal/store"
)

// Service is the core's single entry point. It owns no persistence of its
// own; it mediates between a Store and a set of lazily-built BM25 indices,
// one per scope, rebuilt from the store on first touch (spec §9 "Cyclic
// state and shared index").
type Service struct {
	store store.Store

	mu      sync.Mutex
	indices map[string]*bm25.Index
	k1, b   float64
}

// New returns a Service over st using the given BM25 parameters.
func New(st store.Store, k1, b float64) *Service {
	return &Service{
		store:   st,
		indices: make(map[string]*bm25.Index),
		k1:      k1,
		b:       b,
	}
}

func scopeKey(scope model.Scope) (string, error) {
	switch scope.Kind {
	case model.ScopeSession, model.ScopeGlobal:
		return string(scope.Kind), nil
	case model.ScopeProject:
		if scope.ProjectPath == "" {
			return "", fmt.Errorf("project scope requires a project path")
		}
		abs, err := filepath.Abs(scope.ProjectPath)
		if err != nil {
			return "", fmt.Errorf("resolve project path: %w", err)
		}
		return "project:" + abs, nil
	default:
		return "", fmt.Errorf("invalid scope: %q", scope.Kind)
	}
}

// indexFor returns the index for scope, building it from the store's
// current contents the first time the scope is touched.
func (s *Service) indexFor(ctx context.Context, scope model.Scope) (*bm25.Index, error) {
	key, err := scopeKey(scope)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indices[key]; ok {
		return idx, nil
	}

	idx := bm25.New(s.k1, s.b)
	memories, err := s.store.List(ctx, store.ListParams{Scope: scope, Limit: -1})
	if err != nil {
		return nil, err
	}
	for _, m := range memories {
		idx.Add(m.ID, m.Content)
	}
	s.indices[key] = idx
	return idx, nil
}

// StoreParams holds validated input for StoreMemory.
type StoreParams struct {
	Scope      model.Scope
	Content    string
	Tags       []string
	SourceFile string
	Language   string
}

// StoreMemory persists content in scope and folds it into that scope's
// index. A successful return means the memory is durable and visible to
// subsequent Search/List calls in this process (spec Invariant 3).
func (s *Service) StoreMemory(ctx context.Context, p StoreParams) (*model.Memory, error) {
	idx, err := s.indexFor(ctx, p.Scope)
	if err != nil {
		return nil, err
	}

	mem, err := s.store.Store(ctx, store.PutParams{
		Scope:      p.Scope,
		Content:    p.Content,
		Tags:       p.Tags,
		SourceFile: p.SourceFile,
		Language:   p.Language,
	})
	if err != nil {
		return nil, err
	}

	idx.Add(mem.ID, mem.Content)
	return mem, nil
}

// SearchResult pairs a ranked BM25 score with the memory it matched.
type SearchResult struct {
	model.Memory
	Score float64
}

// SearchParams holds validated input for SearchMemory.
type SearchParams struct {
	Scope model.Scope
	Query string
	K     int
	Tags  []string
}

// SearchMemory scores query against scope's index and returns the top K
// matching memories in descending score order, filtered by tags when
// provided.
func (s *Service) SearchMemory(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	idx, err := s.indexFor(ctx, p.Scope)
	if err != nil {
		return nil, err
	}

	k := p.K
	if k <= 0 {
		k = 5
	}

	// Tags are applied after BM25 has ranked the hits, so we over-fetch
	// from the index and drop hits without a wanted tag, stopping at k. A
	// tagged memory ranked below fetchK is not returned.
	fetchK := k
	if len(p.Tags) > 0 {
		fetchK = k * 4
		if fetchK < 50 {
			fetchK = 50
		}
	}

	hits := idx.Search(p.Query, fetchK)
	if len(hits) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		mem, err := s.store.Get(ctx, p.Scope, h.DocID)
		if err == store.ErrNotFound {
			// Index and store can transiently disagree if a delete raced
			// this search in another goroutine; skip the stale hit.
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(p.Tags) > 0 && !hasAnyTag(mem.Tags, p.Tags) {
			continue
		}
		results = append(results, SearchResult{Memory: *mem, Score: h.Score})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func hasAnyTag(tags, want []string) bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

// ListMemories returns memories in scope ordered by created_at descending.
func (s *Service) ListMemories(ctx context.Context, scope model.Scope, limit, offset int) ([]model.Memory, error) {
	return s.store.List(ctx, store.ListParams{Scope: scope, Limit: limit, Offset: offset})
}

// GetMemory retrieves a single memory by id.
func (s *Service) GetMemory(ctx context.Context, scope model.Scope, id string) (*model.Memory, error) {
	return s.store.Get(ctx, scope, id)
}

// UpdateMemory patches an existing memory and keeps its index entry in
// sync.
func (s *Service) UpdateMemory(ctx context.Context, scope model.Scope, id string, patch store.PatchParams) (*model.Memory, error) {
	idx, err := s.indexFor(ctx, scope)
	if err != nil {
		return nil, err
	}
	mem, err := s.store.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	idx.Add(mem.ID, mem.Content)
	return mem, nil
}

// DeleteMemory removes a memory from the store and its scope's index.
func (s *Service) DeleteMemory(ctx context.Context, scope model.Scope, id string) (bool, error) {
	idx, err := s.indexFor(ctx, scope)
	if err != nil {
		return false, err
	}
	existed, err := s.store.Delete(ctx, scope, id)
	if err != nil {
		return false, err
	}
	if existed {
		idx.Remove(id)
	}
	return existed, nil
}

// CountMemories returns the number of memories in scope.
func (s *Service) CountMemories(ctx context.Context, scope model.Scope) (int, error) {
	return s.store.Count(ctx, scope)
}

// ClearSession empties the session scope and discards its cached index.
func (s *Service) ClearSession() {
	s.store.ClearSession()
	s.mu.Lock()
	delete(s.indices, string(model.ScopeSession))
	s.mu.Unlock()
}

// Close releases the underlying store's resources.
func (s *Service) Close() error {
	return s.store.Close()
}
