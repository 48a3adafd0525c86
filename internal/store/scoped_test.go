package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rcliao/rag-mcp/internal/model"
)

func newTestStore(t *testing.T) *ScopedStore {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "global.db"), ".rag-mcp/data.db", 1000)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []model.ScopeKind{model.ScopeSession, model.ScopeGlobal} {
		s := newTestStore(t)
		scope := model.Scope{Kind: kind}

		mem, err := s.Store(ctx, PutParams{Scope: scope, Content: "hello world", Tags: []string{"a", "b"}})
		if err != nil {
			t.Fatalf("[%s] store: %v", kind, err)
		}
		if mem.Version != 1 {
			t.Errorf("[%s] expected version 1, got %d", kind, mem.Version)
		}
		if mem.CreatedAt.After(mem.UpdatedAt) {
			t.Errorf("[%s] expected created_at <= updated_at", kind)
		}

		got, err := s.Get(ctx, scope, mem.ID)
		if err != nil {
			t.Fatalf("[%s] get: %v", kind, err)
		}
		if got.Content != "hello world" {
			t.Errorf("[%s] expected content round-trip, got %q", kind, got.Content)
		}
		if len(got.Tags) != 2 || got.Tags[0] != "a" || got.Tags[1] != "b" {
			t.Errorf("[%s] expected tags preserved in order, got %v", kind, got.Tags)
		}
	}
}

func TestDelete_IdempotentSecondCallReturnsFalse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.Scope{Kind: model.ScopeGlobal}

	mem, _ := s.Store(ctx, PutParams{Scope: scope, Content: "to delete"})

	ok, err := s.Delete(ctx, scope, mem.ID)
	if err != nil || !ok {
		t.Fatalf("expected first delete true, got %v, %v", ok, err)
	}

	ok, err = s.Delete(ctx, scope, mem.ID)
	if err != nil || ok {
		t.Fatalf("expected second delete false, got %v, %v", ok, err)
	}

	if _, err := s.Get(ctx, scope, mem.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdate_IncrementsVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.Scope{Kind: model.ScopeProject, ProjectPath: t.TempDir()}

	mem, _ := s.Store(ctx, PutParams{Scope: scope, Content: "v1"})

	newContent := "v2"
	updated, err := s.Update(ctx, scope, mem.ID, PatchParams{Content: &newContent})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
	if updated.Content != "v2" {
		t.Fatalf("expected content updated, got %q", updated.Content)
	}
	if updated.UpdatedAt.Before(mem.UpdatedAt) {
		t.Fatalf("expected updated_at to advance")
	}
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	projectPath := t.TempDir()

	_, err := s.Store(ctx, PutParams{Scope: model.Scope{Kind: model.ScopeProject, ProjectPath: projectPath}, Content: "project memory"})
	if err != nil {
		t.Fatalf("store project: %v", err)
	}

	globalList, err := s.List(ctx, ListParams{Scope: model.Scope{Kind: model.ScopeGlobal}})
	if err != nil {
		t.Fatalf("list global: %v", err)
	}
	if len(globalList) != 0 {
		t.Fatalf("expected global scope empty, got %d", len(globalList))
	}

	projectList, err := s.List(ctx, ListParams{Scope: model.Scope{Kind: model.ScopeProject, ProjectPath: projectPath}})
	if err != nil {
		t.Fatalf("list project: %v", err)
	}
	if len(projectList) != 1 {
		t.Fatalf("expected 1 project memory, got %d", len(projectList))
	}
}

func TestSessionCap_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "global.db"), ".rag-mcp/data.db", 3)
	defer s.Close()
	scope := model.Scope{Kind: model.ScopeSession}

	var ids []string
	for i := 0; i < 4; i++ {
		mem, err := s.Store(ctx, PutParams{Scope: scope, Content: "memory"})
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		ids = append(ids, mem.ID)
	}

	list, err := s.List(ctx, ListParams{Scope: scope, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 memories after cap, got %d", len(list))
	}
	if list[0].ID != ids[3] || list[1].ID != ids[2] || list[2].ID != ids[1] {
		t.Fatalf("expected most-recent-first order M4,M3,M2, got %v", []string{list[0].ID, list[1].ID, list[2].ID})
	}
	if _, err := s.Get(ctx, scope, ids[0]); err != ErrNotFound {
		t.Fatalf("expected earliest memory evicted, got %v", err)
	}
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.Scope{Kind: model.ScopeSession}

	s.Store(ctx, PutParams{Scope: scope, Content: "a"})
	s.Store(ctx, PutParams{Scope: scope, Content: "b"})

	s.ClearSession()

	list, _ := s.List(ctx, ListParams{Scope: scope})
	if len(list) != 0 {
		t.Fatalf("expected empty session after clear, got %d", len(list))
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.Scope{Kind: model.ScopeGlobal}

	s.Store(ctx, PutParams{Scope: scope, Content: "a"})
	s.Store(ctx, PutParams{Scope: scope, Content: "b"})

	n, err := s.Count(ctx, scope)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}
