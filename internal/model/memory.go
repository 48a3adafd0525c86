// Package model defines the core memory data types shared by the store,
// the index, and the dispatcher.
package model

import "time"

// ScopeKind identifies which of the three memory containers a Scope refers to.
type ScopeKind string

const (
	ScopeSession ScopeKind = "session"
	ScopeProject ScopeKind = "project"
	ScopeGlobal  ScopeKind = "global"
)

// Scope tags the owning container of a Memory. ProjectPath is only
// meaningful (and required) when Kind is ScopeProject.
type Scope struct {
	Kind        ScopeKind
	ProjectPath string
}

// Memory is the persisted unit of knowledge.
type Memory struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	Scope           ScopeKind  `json:"scope"`
	Tags            []string   `json:"tags,omitempty"`
	SourceFile      string     `json:"source_file,omitempty"`
	Language        string     `json:"language,omitempty"`
	ImportanceScore float64    `json:"importance_score"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
	DeletedAt       *time.Time `json:"-"`
}

// DefaultImportanceScore is the value assigned when a caller does not
// supply one; it is carried on every Memory but not used by ranking.
const DefaultImportanceScore = 1.0
