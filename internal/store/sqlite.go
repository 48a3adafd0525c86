package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rcliao/rag-mcp/internal/model"
)

// sqliteScope is a single-file SQLite-backed store for one project or
// global scope. The engine's own WAL locking handles concurrent access
// from other processes. The struct has no mutex of its own: *sql.DB is safe
// for concurrent use, and ScopedStore's mutex guards the lazy opening of
// the handle.
type sqliteScope struct {
	db   *sql.DB
	kind model.ScopeKind
}

// openSQLiteScope opens or creates a SQLite database at path, configuring
// WAL journaling and NORMAL synchronous mode through the driver's pragma
// channel (spec §4.3 "Required configuration on open" / §9 "Embedded-engine
// pragma commands"). Pragmas that return rows must be issued this way; a
// fire-and-forget PRAGMA statement executed via Exec silently discards the
// row SQLite returns for journal_mode and can leave WAL unset.
func openSQLiteScope(path string, kind model.ScopeKind) (*sqliteScope, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &sqliteScope{db: db, kind: kind}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *sqliteScope) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		content     TEXT NOT NULL,
		scope       TEXT NOT NULL,
		tags        TEXT,
		source_file TEXT,
		language    TEXT,
		importance  REAL NOT NULL DEFAULT 1.0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		custom      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	`)
	return err
}

func (s *sqliteScope) store(ctx context.Context, p PutParams) (*model.Memory, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	importance := p.Importance
	if importance == 0 {
		importance = model.DefaultImportanceScore
	}

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		j := string(b)
		tagsJSON = &j
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, scope, tags, source_file, language, importance, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		id, p.Content, string(s.kind), tagsJSON, nullIfEmpty(p.SourceFile), nullIfEmpty(p.Language),
		importance, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &model.Memory{
		ID:              id,
		Content:         p.Content,
		Scope:           s.kind,
		Tags:            p.Tags,
		SourceFile:      p.SourceFile,
		Language:        p.Language,
		ImportanceScore: importance,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}, nil
}

func (s *sqliteScope) get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, scope, tags, source_file, language, importance, created_at, updated_at, version
		 FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *sqliteScope) update(ctx context.Context, id string, patch PatchParams) (*model.Memory, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		existing.Content = *patch.Content
	}
	if patch.Tags != nil {
		existing.Tags = patch.Tags
	}
	if patch.SourceFile != nil {
		existing.SourceFile = *patch.SourceFile
	}
	if patch.Language != nil {
		existing.Language = *patch.Language
	}
	if patch.Importance != nil {
		existing.ImportanceScore = *patch.Importance
	}
	existing.Version++
	existing.UpdatedAt = time.Now().UTC()

	var tagsJSON *string
	if len(existing.Tags) > 0 {
		b, _ := json.Marshal(existing.Tags)
		j := string(b)
		tagsJSON = &j
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE memories SET content = ?, tags = ?, source_file = ?, language = ?, importance = ?,
		 updated_at = ?, version = ? WHERE id = ?`,
		existing.Content, tagsJSON, nullIfEmpty(existing.SourceFile), nullIfEmpty(existing.Language),
		existing.ImportanceScore, existing.UpdatedAt.UnixMilli(), existing.Version, id)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	return existing, nil
}

func (s *sqliteScope) delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// list returns memories ordered by created_at descending. A negative limit
// means unbounded (used to rebuild the BM25 index from the full scope); a
// zero limit falls back to the spec's default page size of 50.
func (s *sqliteScope) list(ctx context.Context, limit, offset int) ([]model.Memory, error) {
	query := `SELECT id, content, scope, tags, source_file, language, importance, created_at, updated_at, version
		 FROM memories ORDER BY created_at DESC LIMIT -1 OFFSET ?`
	args := []interface{}{offset}
	if limit >= 0 {
		if limit == 0 {
			limit = 50
		}
		query = `SELECT id, content, scope, tags, source_file, language, importance, created_at, updated_at, version
		 FROM memories ORDER BY created_at DESC LIMIT ? OFFSET ?`
		args = []interface{}{limit, offset}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *sqliteScope) count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

func (s *sqliteScope) close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (*model.Memory, error) {
	var m model.Memory
	var scope string
	var tagsJSON, sourceFile, language sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&m.ID, &m.Content, &scope, &tagsJSON, &sourceFile, &language,
		&m.ImportanceScore, &createdAt, &updatedAt, &m.Version)
	if err != nil {
		return nil, err
	}

	m.Scope = model.ScopeKind(scope)
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if sourceFile.Valid {
		m.SourceFile = sourceFile.String
	}
	if language.Valid {
		m.Language = language.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	return &m, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
