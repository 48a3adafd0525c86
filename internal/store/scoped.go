package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rcliao/rag-mcp/internal/model"
)

// ScopedStore is the Store implementation spanning all three scopes. Each
// project and global database handle is created lazily on first use and
// guarded by a mutex, per spec §4.3; multiple dispatcher processes may
// share the same project or global file, with all cross-process mutual
// exclusion delegated to the SQLite engine's WAL locking (spec §5).
type ScopedStore struct {
	mu          sync.Mutex
	globalPath  string
	projectName string
	global      *sqliteScope
	projects    map[string]*sqliteScope
	session     *sessionScope
}

// New creates a ScopedStore. globalPath is the file used for the global
// scope; projectDBName is the relative path (e.g. ".rag-mcp/data.db")
// joined under a project root to find that project's database;
// sessionCap bounds the in-process session scope.
func New(globalPath, projectDBName string, sessionCap int) *ScopedStore {
	return &ScopedStore{
		globalPath:  globalPath,
		projectName: projectDBName,
		projects:    make(map[string]*sqliteScope),
		session:     newSessionScope(sessionCap),
	}
}

func (s *ScopedStore) scopeHandle(scope model.Scope) (*sqliteScope, error) {
	switch scope.Kind {
	case model.ScopeGlobal:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.global == nil {
			h, err := openSQLiteScope(s.globalPath, model.ScopeGlobal)
			if err != nil {
				return nil, err
			}
			s.global = h
		}
		return s.global, nil

	case model.ScopeProject:
		if scope.ProjectPath == "" {
			return nil, fmt.Errorf("project scope requires a project path")
		}
		abs, err := filepath.Abs(scope.ProjectPath)
		if err != nil {
			return nil, fmt.Errorf("resolve project path: %w", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		h, ok := s.projects[abs]
		if !ok {
			h, err = openSQLiteScope(filepath.Join(abs, s.projectName), model.ScopeProject)
			if err != nil {
				return nil, err
			}
			s.projects[abs] = h
		}
		return h, nil

	default:
		return nil, fmt.Errorf("unknown scope: %s", scope.Kind)
	}
}

func (s *ScopedStore) Store(ctx context.Context, p PutParams) (*model.Memory, error) {
	if p.Scope.Kind == model.ScopeSession {
		return s.session.store(p)
	}
	h, err := s.scopeHandle(p.Scope)
	if err != nil {
		return nil, err
	}
	return h.store(ctx, p)
}

func (s *ScopedStore) Get(ctx context.Context, scope model.Scope, id string) (*model.Memory, error) {
	if scope.Kind == model.ScopeSession {
		return s.session.get(id)
	}
	h, err := s.scopeHandle(scope)
	if err != nil {
		return nil, err
	}
	return h.get(ctx, id)
}

func (s *ScopedStore) Update(ctx context.Context, scope model.Scope, id string, patch PatchParams) (*model.Memory, error) {
	if scope.Kind == model.ScopeSession {
		return s.session.update(id, patch)
	}
	h, err := s.scopeHandle(scope)
	if err != nil {
		return nil, err
	}
	return h.update(ctx, id, patch)
}

func (s *ScopedStore) Delete(ctx context.Context, scope model.Scope, id string) (bool, error) {
	if scope.Kind == model.ScopeSession {
		return s.session.delete(id), nil
	}
	h, err := s.scopeHandle(scope)
	if err != nil {
		return false, err
	}
	return h.delete(ctx, id)
}

func (s *ScopedStore) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	if p.Scope.Kind == model.ScopeSession {
		return s.session.list(p.Limit, p.Offset), nil
	}
	h, err := s.scopeHandle(p.Scope)
	if err != nil {
		return nil, err
	}
	return h.list(ctx, p.Limit, p.Offset)
}

func (s *ScopedStore) Count(ctx context.Context, scope model.Scope) (int, error) {
	if scope.Kind == model.ScopeSession {
		return s.session.count(), nil
	}
	h, err := s.scopeHandle(scope)
	if err != nil {
		return 0, err
	}
	return h.count(ctx)
}

func (s *ScopedStore) ClearSession() {
	s.session.clear()
}

// Close releases every open database handle, which releases the WAL lock
// so a subsequent process invocation can acquire it promptly (spec §4.4
// "Signal handling").
func (s *ScopedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.global != nil {
		if err := s.global.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range s.projects {
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
