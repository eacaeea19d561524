// Package storage implements the StorageBackend collaborator contract
// against Postgres (lib/pq) and SQLite (mattn/go-sqlite3): plain
// database/sql with JSON-blob columns for nested structures and explicit
// row scanning.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Backend is the storage collaborator contract: typed accessors for
// memories and graph tables; returns the underlying DB handle for the
// graph storage adapter; atomic incrementAccessCount; close() releases all
// resources on every path.
type Backend interface {
	Initialize(ctx context.Context) error

	GetMemory(ctx context.Context, id string) (*types.Memory, error)
	SaveMemory(ctx context.Context, m *types.Memory) error
	DeleteMemory(ctx context.Context, id string) error
	IncrementAccessCount(ctx context.Context, id string) error

	UpsertEntity(ctx context.Context, e *types.Entity) error
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
	FindEntityByName(ctx context.Context, canonicalName string) (*types.Entity, error)
	LinkEntityMemory(ctx context.Context, entityID, memoryID string) error
	MemoryIDsForEntity(ctx context.Context, entityID string) ([]string, error)

	UpsertRelationship(ctx context.Context, r *types.Relationship) error
	RelationshipsFrom(ctx context.Context, entityID string, minStrength int) ([]types.Relationship, error)

	UpsertCommunity(ctx context.Context, c *types.Community) error
	UpsertCommunityReport(ctx context.Context, r *types.CommunityReport) error
	GetCommunityReport(ctx context.Context, id string) (*types.CommunityReport, error)

	DB() *sql.DB
	Close() error
}

// dialect abstracts the small set of SQL differences between Postgres and
// SQLite this package needs: parameter placeholders and upsert syntax.
type dialect interface {
	placeholder(n int) string
	upsertMemory() string
	upsertEntity() string
	upsertRelationship() string
	upsertCommunity() string
	upsertCommunityReport() string
	schema() []string
}

// base implements Backend once against database/sql + a dialect, shared by
// the Postgres and SQLite adapters (their SQL text is identical apart from
// placeholders and a handful of upsert statements).
type base struct {
	db  *sql.DB
	dia dialect
}

func (b *base) DB() *sql.DB { return b.db }

func (b *base) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *base) Initialize(ctx context.Context) error {
	for _, stmt := range b.dia.schema() {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return wrapStorageErr("Initialize", err)
		}
	}
	return nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
