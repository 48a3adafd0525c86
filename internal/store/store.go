// Package store provides durable, per-scope CRUD for memories. Session
// scope lives in process memory; project and global scopes are backed by
// SQLite files opened lazily and guarded by a mutex.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/rag-mcp/internal/model"
)

// ErrNotFound is returned by Get and Update when no memory matches.
var ErrNotFound = errors.New("memory not found")

// PutParams holds parameters for storing a new memory.
type PutParams struct {
	Scope      model.Scope
	Content    string
	Tags       []string
	SourceFile string
	Language   string
	Importance float64
}

// PatchParams holds the fields an Update call may change. Nil pointers
// leave the corresponding field untouched.
type PatchParams struct {
	Content    *string
	Tags       []string
	SourceFile *string
	Language   *string
	Importance *float64
}

// ListParams holds parameters for listing memories within a scope.
type ListParams struct {
	Scope  model.Scope
	Limit  int
	Offset int
}

// Store is the per-scope persistence contract described in spec §4.3.
type Store interface {
	// Store persists a new memory and returns it fully populated with a
	// fresh id, version 1, and timestamps.
	Store(ctx context.Context, p PutParams) (*model.Memory, error)

	// Get retrieves a memory by id within scope. Returns ErrNotFound if
	// absent.
	Get(ctx context.Context, scope model.Scope, id string) (*model.Memory, error)

	// Update applies patch to an existing memory, incrementing version and
	// refreshing updated_at. Returns ErrNotFound if absent.
	Update(ctx context.Context, scope model.Scope, id string, patch PatchParams) (*model.Memory, error)

	// Delete removes a memory, returning whether it existed.
	Delete(ctx context.Context, scope model.Scope, id string) (bool, error)

	// List returns memories in scope ordered by created_at descending.
	List(ctx context.Context, p ListParams) ([]model.Memory, error)

	// Count returns the number of memories currently in scope.
	Count(ctx context.Context, scope model.Scope) (int, error)

	// ClearSession empties the session scope. Never fails.
	ClearSession()

	// Close releases all open database handles.
	Close() error
}
