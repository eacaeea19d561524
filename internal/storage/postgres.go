package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) upsertMemory() string {
	return `INSERT INTO memories (
			id, kind, title, body, summary, importance, access_count, created_at, accessed_at,
			refreshed_at, tags, related_files, experts, decay_rate, decay_function, confidence_floor,
			vector_id, source_pr, source_commit
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (id) DO UPDATE SET
			kind=EXCLUDED.kind, title=EXCLUDED.title, body=EXCLUDED.body, summary=EXCLUDED.summary,
			importance=EXCLUDED.importance, access_count=EXCLUDED.access_count, created_at=EXCLUDED.created_at,
			accessed_at=EXCLUDED.accessed_at, refreshed_at=EXCLUDED.refreshed_at, tags=EXCLUDED.tags,
			related_files=EXCLUDED.related_files, experts=EXCLUDED.experts, decay_rate=EXCLUDED.decay_rate,
			decay_function=EXCLUDED.decay_function, confidence_floor=EXCLUDED.confidence_floor,
			vector_id=EXCLUDED.vector_id, source_pr=EXCLUDED.source_pr, source_commit=EXCLUDED.source_commit`
}

func (postgresDialect) upsertEntity() string {
	return `INSERT INTO entities (
			id, canonical_name, entity_type, description, mention_count, extraction_confidence,
			first_seen_at, last_seen_at, embedding_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			canonical_name=EXCLUDED.canonical_name, entity_type=EXCLUDED.entity_type,
			description=EXCLUDED.description, mention_count=EXCLUDED.mention_count,
			extraction_confidence=EXCLUDED.extraction_confidence, first_seen_at=EXCLUDED.first_seen_at,
			last_seen_at=EXCLUDED.last_seen_at, embedding_id=EXCLUDED.embedding_id`
}

func (postgresDialect) upsertRelationship() string {
	return `INSERT INTO relationships (id, source_entity_id, target_entity_id, relation_type, strength, description)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (source_entity_id, target_entity_id, relation_type) DO UPDATE SET
			strength=EXCLUDED.strength, description=EXCLUDED.description`
}

func (postgresDialect) upsertCommunity() string {
	return `INSERT INTO communities (id, level, parent_id, entity_count, modularity)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			level=EXCLUDED.level, parent_id=EXCLUDED.parent_id, entity_count=EXCLUDED.entity_count,
			modularity=EXCLUDED.modularity`
}

func (postgresDialect) upsertCommunityReport() string {
	return `INSERT INTO community_reports (id, community_id, title, summary, full_content, key_findings, rating, embedding_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			community_id=EXCLUDED.community_id, title=EXCLUDED.title, summary=EXCLUDED.summary,
			full_content=EXCLUDED.full_content, key_findings=EXCLUDED.key_findings, rating=EXCLUDED.rating,
			embedding_id=EXCLUDED.embedding_id`
}

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY, kind TEXT NOT NULL, title TEXT NOT NULL, body TEXT NOT NULL, summary TEXT,
			importance DOUBLE PRECISION NOT NULL, access_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL, accessed_at TIMESTAMPTZ NOT NULL, refreshed_at TIMESTAMPTZ,
			tags JSONB, related_files JSONB, experts JSONB,
			decay_rate DOUBLE PRECISION, decay_function TEXT, confidence_floor DOUBLE PRECISION,
			vector_id TEXT, source_pr TEXT, source_commit TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY, canonical_name TEXT NOT NULL, entity_type TEXT NOT NULL, description TEXT,
			mention_count INT NOT NULL DEFAULT 1, extraction_confidence DOUBLE PRECISION NOT NULL,
			first_seen_at TIMESTAMPTZ NOT NULL, last_seen_at TIMESTAMPTZ NOT NULL, embedding_id TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS entities_canonical_name_ci ON entities (LOWER(canonical_name))`,
		`CREATE TABLE IF NOT EXISTS entity_memories (
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			memory_id TEXT NOT NULL,
			PRIMARY KEY (entity_id, memory_id)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY, source_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			target_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			relation_type TEXT NOT NULL, strength INT NOT NULL, description TEXT,
			UNIQUE (source_entity_id, target_entity_id, relation_type)
		)`,
		`CREATE TABLE IF NOT EXISTS relationship_sources (
			relationship_id TEXT NOT NULL REFERENCES relationships(id) ON DELETE CASCADE,
			memory_id TEXT NOT NULL,
			PRIMARY KEY (relationship_id, memory_id)
		)`,
		`CREATE TABLE IF NOT EXISTS communities (
			id TEXT PRIMARY KEY, level INT NOT NULL, parent_id TEXT, entity_count INT NOT NULL DEFAULT 0,
			modularity DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS community_members (
			community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			PRIMARY KEY (community_id, entity_id)
		)`,
		`CREATE TABLE IF NOT EXISTS community_reports (
			id TEXT PRIMARY KEY, community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			title TEXT NOT NULL, summary TEXT, full_content TEXT, key_findings JSONB, rating DOUBLE PRECISION,
			embedding_id TEXT
		)`,
	}
}

// NewPostgresBackend opens dsn and returns a Backend. Call Initialize
// before use.
func NewPostgresBackend(dsn string) (Backend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, memerrors.New(memerrors.KindStorage, "storage.NewPostgresBackend", err)
	}
	return &base{db: db, dia: postgresDialect{}}, nil
}

// Ping via ExecContext(ctx, "SELECT 1") is a cheap readiness check; exposed
// through a free function so callers can health-check without reaching
// into the Backend interface.
func Ping(ctx context.Context, b Backend) error {
	_, err := b.DB().ExecContext(ctx, "SELECT 1")
	if err != nil {
		return memerrors.Retryable(memerrors.New(memerrors.KindStorage, "storage.Ping", err))
	}
	return nil
}
