package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func (b *base) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	row := b.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, kind, title, body, summary, importance, access_count, created_at, accessed_at,
		        refreshed_at, tags, related_files, experts, decay_rate, decay_function, confidence_floor,
		        vector_id, source_pr, source_commit
		 FROM memories WHERE id = %s`, b.dia.placeholder(1)), id)

	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memerrors.New(memerrors.KindStorage, "storage.GetMemory", fmt.Errorf("memory %q not found", id))
	}
	if err != nil {
		return nil, wrapStorageErr("GetMemory", err)
	}
	return m, nil
}

func (b *base) SaveMemory(ctx context.Context, m *types.Memory) error {
	tags, err := json.Marshal(setToSlice(m.Tags))
	if err != nil {
		return wrapStorageErr("SaveMemory", err)
	}
	related, err := json.Marshal(setToSlice(m.RelatedFiles))
	if err != nil {
		return wrapStorageErr("SaveMemory", err)
	}
	experts, err := json.Marshal(setToSlice(m.Experts))
	if err != nil {
		return wrapStorageErr("SaveMemory", err)
	}

	_, err = b.db.ExecContext(ctx, b.dia.upsertMemory(),
		m.ID, string(m.Kind), m.Title, m.Body, m.Summary, m.Importance, m.AccessCount,
		m.CreatedAt, m.AccessedAt, nullableTime(m.RefreshedAt), string(tags), string(related), string(experts),
		nullableFloat(m.DecayRate), string(m.DecayFunction), nullableFloat(m.ConfidenceFloor),
		m.VectorID, m.SourcePR, m.SourceCommit,
	)
	if err != nil {
		return wrapStorageErr("SaveMemory", err)
	}
	return nil
}

func (b *base) DeleteMemory(ctx context.Context, id string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr("DeleteMemory", err)
	}
	defer func() { _ = tx.Rollback() }()

	ph := b.dia.placeholder(1)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM entity_memories WHERE memory_id = %s`, ph), id); err != nil {
		return wrapStorageErr("DeleteMemory", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM memories WHERE id = %s`, ph), id); err != nil {
		return wrapStorageErr("DeleteMemory", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapStorageErr("DeleteMemory", err)
	}
	return nil
}

func (b *base) IncrementAccessCount(ctx context.Context, id string) error {
	ph1, ph2 := b.dia.placeholder(1), b.dia.placeholder(2)
	query := fmt.Sprintf(
		`UPDATE memories SET access_count = access_count + 1, accessed_at = %s WHERE id = %s`, ph1, ph2)
	res, err := b.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return wrapStorageErr("IncrementAccessCount", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr("IncrementAccessCount", err)
	}
	if n == 0 {
		return memerrors.New(memerrors.KindStorage, "storage.IncrementAccessCount", fmt.Errorf("memory %q not found", id))
	}
	return nil
}

func scanMemory(row *sql.Row) (*types.Memory, error) {
	var m types.Memory
	var kind, decayFunction string
	var tags, related, experts string
	var decayRate, confidenceFloor sql.NullFloat64
	var refreshedAt sql.NullTime

	err := row.Scan(
		&m.ID, &kind, &m.Title, &m.Body, &m.Summary, &m.Importance, &m.AccessCount, &m.CreatedAt, &m.AccessedAt,
		&refreshedAt, &tags, &related, &experts, &decayRate, &decayFunction, &confidenceFloor,
		&m.VectorID, &m.SourcePR, &m.SourceCommit,
	)
	if err != nil {
		return nil, err
	}

	m.Kind = types.MemoryKind(kind)
	m.DecayFunction = types.DecayFunction(decayFunction)
	if refreshedAt.Valid {
		t := refreshedAt.Time
		m.RefreshedAt = &t
	}
	if decayRate.Valid {
		v := decayRate.Float64
		m.DecayRate = &v
	}
	if confidenceFloor.Valid {
		v := confidenceFloor.Float64
		m.ConfidenceFloor = &v
	}
	m.Tags = types.NewTagSet(jsonSlice(tags))
	m.RelatedFiles = types.NewStringSet(jsonSlice(related))
	m.Experts = types.NewStringSet(jsonSlice(experts))
	return &m, nil
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func jsonSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
