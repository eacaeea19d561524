package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) upsertMemory() string {
	return `INSERT INTO memories (
			id, kind, title, body, summary, importance, access_count, created_at, accessed_at,
			refreshed_at, tags, related_files, experts, decay_rate, decay_function, confidence_floor,
			vector_id, source_pr, source_commit
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			kind=excluded.kind, title=excluded.title, body=excluded.body, summary=excluded.summary,
			importance=excluded.importance, access_count=excluded.access_count, created_at=excluded.created_at,
			accessed_at=excluded.accessed_at, refreshed_at=excluded.refreshed_at, tags=excluded.tags,
			related_files=excluded.related_files, experts=excluded.experts, decay_rate=excluded.decay_rate,
			decay_function=excluded.decay_function, confidence_floor=excluded.confidence_floor,
			vector_id=excluded.vector_id, source_pr=excluded.source_pr, source_commit=excluded.source_commit`
}

func (sqliteDialect) upsertEntity() string {
	return `INSERT INTO entities (
			id, canonical_name, entity_type, description, mention_count, extraction_confidence,
			first_seen_at, last_seen_at, embedding_id
		) VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			canonical_name=excluded.canonical_name, entity_type=excluded.entity_type,
			description=excluded.description, mention_count=excluded.mention_count,
			extraction_confidence=excluded.extraction_confidence, first_seen_at=excluded.first_seen_at,
			last_seen_at=excluded.last_seen_at, embedding_id=excluded.embedding_id`
}

func (sqliteDialect) upsertRelationship() string {
	return `INSERT INTO relationships (id, source_entity_id, target_entity_id, relation_type, strength, description)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT (source_entity_id, target_entity_id, relation_type) DO UPDATE SET
			strength=excluded.strength, description=excluded.description`
}

func (sqliteDialect) upsertCommunity() string {
	return `INSERT INTO communities (id, level, parent_id, entity_count, modularity)
		VALUES (?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			level=excluded.level, parent_id=excluded.parent_id, entity_count=excluded.entity_count,
			modularity=excluded.modularity`
}

func (sqliteDialect) upsertCommunityReport() string {
	return `INSERT INTO community_reports (id, community_id, title, summary, full_content, key_findings, rating, embedding_id)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			community_id=excluded.community_id, title=excluded.title, summary=excluded.summary,
			full_content=excluded.full_content, key_findings=excluded.key_findings, rating=excluded.rating,
			embedding_id=excluded.embedding_id`
}

func (sqliteDialect) schema() []string {
	return []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY, kind TEXT NOT NULL, title TEXT NOT NULL, body TEXT NOT NULL, summary TEXT,
			importance REAL NOT NULL, access_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL, accessed_at DATETIME NOT NULL, refreshed_at DATETIME,
			tags TEXT, related_files TEXT, experts TEXT,
			decay_rate REAL, decay_function TEXT, confidence_floor REAL,
			vector_id TEXT, source_pr TEXT, source_commit TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY, canonical_name TEXT NOT NULL COLLATE NOCASE, entity_type TEXT NOT NULL,
			description TEXT, mention_count INTEGER NOT NULL DEFAULT 1, extraction_confidence REAL NOT NULL,
			first_seen_at DATETIME NOT NULL, last_seen_at DATETIME NOT NULL, embedding_id TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS entities_canonical_name_ci ON entities (canonical_name COLLATE NOCASE)`,
		`CREATE TABLE IF NOT EXISTS entity_memories (
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			memory_id TEXT NOT NULL,
			PRIMARY KEY (entity_id, memory_id)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY, source_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			target_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			relation_type TEXT NOT NULL, strength INTEGER NOT NULL, description TEXT,
			UNIQUE (source_entity_id, target_entity_id, relation_type)
		)`,
		`CREATE TABLE IF NOT EXISTS relationship_sources (
			relationship_id TEXT NOT NULL REFERENCES relationships(id) ON DELETE CASCADE,
			memory_id TEXT NOT NULL,
			PRIMARY KEY (relationship_id, memory_id)
		)`,
		`CREATE TABLE IF NOT EXISTS communities (
			id TEXT PRIMARY KEY, level INTEGER NOT NULL, parent_id TEXT, entity_count INTEGER NOT NULL DEFAULT 0,
			modularity REAL
		)`,
		`CREATE TABLE IF NOT EXISTS community_members (
			community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			PRIMARY KEY (community_id, entity_id)
		)`,
		`CREATE TABLE IF NOT EXISTS community_reports (
			id TEXT PRIMARY KEY, community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			title TEXT NOT NULL, summary TEXT, full_content TEXT, key_findings TEXT, rating REAL,
			embedding_id TEXT
		)`,
	}
}

// NewSQLiteBackend opens the SQLite database at path and returns a Backend.
// Call Initialize before use.
func NewSQLiteBackend(path string) (Backend, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, memerrors.New(memerrors.KindStorage, "storage.NewSQLiteBackend", err)
	}
	// SQLite allows only one writer at a time; serialise via a single
	// connection.
	db.SetMaxOpenConns(1)
	return &base{db: db, dia: sqliteDialect{}}, nil
}
