package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Graph tables: entities, entity_memories, relationships,
// relationship_sources, communities, community_members, community_reports
//. Foreign-key cascades on entity delete; unique indices on
// entity canonical-name (NOCASE) and (source,target,type) on relationships
// are declared in each dialect's schema().

func (b *base) UpsertEntity(ctx context.Context, e *types.Entity) error {
	_, err := b.db.ExecContext(ctx, b.dia.upsertEntity(),
		e.ID, e.CanonicalName, string(e.Type), e.Description, e.MentionCount,
		e.ExtractionConfidence, e.FirstSeenAt, e.LastSeenAt, nullableString(e.EmbeddingID),
	)
	if err != nil {
		return wrapStorageErr("UpsertEntity", err)
	}
	return nil
}

func (b *base) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	row := b.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, canonical_name, entity_type, description, mention_count, extraction_confidence,
		        first_seen_at, last_seen_at, embedding_id
		 FROM entities WHERE id = %s`, b.dia.placeholder(1)), id)
	return scanEntity(row)
}

func (b *base) FindEntityByName(ctx context.Context, canonicalName string) (*types.Entity, error) {
	row := b.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, canonical_name, entity_type, description, mention_count, extraction_confidence,
		        first_seen_at, last_seen_at, embedding_id
		 FROM entities WHERE canonical_name = %s COLLATE NOCASE`, b.dia.placeholder(1)), canonicalName)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func scanEntity(row *sql.Row) (*types.Entity, error) {
	var e types.Entity
	var entityType string
	var embeddingID sql.NullString
	err := row.Scan(&e.ID, &e.CanonicalName, &entityType, &e.Description, &e.MentionCount,
		&e.ExtractionConfidence, &e.FirstSeenAt, &e.LastSeenAt, &embeddingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, wrapStorageErr("scanEntity", err)
	}
	e.Type = types.EntityType(entityType)
	if embeddingID.Valid {
		e.EmbeddingID = embeddingID.String
	}
	return &e, nil
}

func (b *base) LinkEntityMemory(ctx context.Context, entityID, memoryID string) error {
	ph1, ph2 := b.dia.placeholder(1), b.dia.placeholder(2)
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO entity_memories (entity_id, memory_id) VALUES (%s, %s)`, ph1, ph2), entityID, memoryID)
	if err != nil {
		return wrapStorageErr("LinkEntityMemory", err)
	}
	return nil
}

func (b *base) MemoryIDsForEntity(ctx context.Context, entityID string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT memory_id FROM entity_memories WHERE entity_id = %s`, b.dia.placeholder(1)), entityID)
	if err != nil {
		return nil, wrapStorageErr("MemoryIDsForEntity", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapStorageErr("MemoryIDsForEntity", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (b *base) UpsertRelationship(ctx context.Context, r *types.Relationship) error {
	_, err := b.db.ExecContext(ctx, b.dia.upsertRelationship(),
		r.ID, r.SourceID, r.TargetID, r.Type, r.Strength, r.Description)
	if err != nil {
		return wrapStorageErr("UpsertRelationship", err)
	}
	return nil
}

func (b *base) RelationshipsFrom(ctx context.Context, entityID string, minStrength int) ([]types.Relationship, error) {
	ph1, ph2 := b.dia.placeholder(1), b.dia.placeholder(2)
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, source_entity_id, target_entity_id, relation_type, strength, description
		 FROM relationships WHERE source_entity_id = %s AND strength >= %s`, ph1, ph2), entityID, minStrength)
	if err != nil {
		return nil, wrapStorageErr("RelationshipsFrom", err)
	}
	defer rows.Close()

	var out []types.Relationship
	for rows.Next() {
		var r types.Relationship
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Strength, &r.Description); err != nil {
			return nil, wrapStorageErr("RelationshipsFrom", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *base) UpsertCommunity(ctx context.Context, c *types.Community) error {
	_, err := b.db.ExecContext(ctx, b.dia.upsertCommunity(),
		c.ID, c.Level, nullableString(c.ParentID), c.EntityCount, c.Modularity)
	if err != nil {
		return wrapStorageErr("UpsertCommunity", err)
	}
	return nil
}

func (b *base) UpsertCommunityReport(ctx context.Context, r *types.CommunityReport) error {
	_, err := b.db.ExecContext(ctx, b.dia.upsertCommunityReport(),
		r.ID, r.CommunityID, r.Title, r.Summary, r.FullContent, keyFindingsJSON(r.KeyFindings),
		nullableFloat(r.Rating), nullableString(r.EmbeddingID))
	if err != nil {
		return wrapStorageErr("UpsertCommunityReport", err)
	}
	return nil
}

func (b *base) GetCommunityReport(ctx context.Context, id string) (*types.CommunityReport, error) {
	row := b.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, community_id, title, summary, full_content, key_findings, rating, embedding_id
		 FROM community_reports WHERE id = %s`, b.dia.placeholder(1)), id)

	var r types.CommunityReport
	var findings string
	var rating sql.NullFloat64
	var embeddingID sql.NullString
	err := row.Scan(&r.ID, &r.CommunityID, &r.Title, &r.Summary, &r.FullContent, &findings, &rating, &embeddingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memerrors.New(memerrors.KindStorage, "storage.GetCommunityReport", fmt.Errorf("report %q not found", id))
	}
	if err != nil {
		return nil, wrapStorageErr("GetCommunityReport", err)
	}
	r.KeyFindings = jsonSlice(findings)
	if rating.Valid {
		v := rating.Float64
		r.Rating = &v
	}
	if embeddingID.Valid {
		r.EmbeddingID = embeddingID.String
	}
	return &r, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func keyFindingsJSON(findings []string) string {
	if len(findings) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(findings)
	return string(b)
}
