package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/conversagent/core/store"
)

func (d *DB) CreateKnowledgeEntry(ctx context.Context, create *store.CreateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	if err := store.ValidateJSONColumn(create.Metadata); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	meta, _ := json.Marshal(create.Metadata)
	vector := pgvector.NewVector(create.Embedding)

	stmt := `INSERT INTO knowledge_entry (id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at)
		VALUES (` + placeholders(14) + `)`
	_, err := d.db.ExecContext(ctx, stmt, id, create.TenantID, create.Kind, create.Title, create.Content,
		create.Category, create.Keywords, vector, meta, create.Priority, true, 1, now, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create knowledge entry")
	}
	return &store.KnowledgeEntry{
		ID: id, TenantID: create.TenantID, Kind: create.Kind, Title: create.Title, Content: create.Content,
		Category: create.Category, Keywords: create.Keywords, Embedding: create.Embedding, Metadata: create.Metadata,
		Priority: create.Priority, Active: true, Version: 1, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// UpdateKnowledgeEntry version-bumps when title or content changes, per
// §4.3, and stores update.Embedding when one is supplied; it computes no
// embedding itself (ai/knowledge.Service.Update does).
func (d *DB) UpdateKnowledgeEntry(ctx context.Context, update *store.UpdateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	set, args := []string{"updated_at = now()"}, []any{}
	bumpVersion := false

	if update.Title != nil {
		args = append(args, *update.Title)
		set = append(set, "title = "+placeholder(len(args)))
		bumpVersion = true
	}
	if update.Content != nil {
		args = append(args, *update.Content)
		set = append(set, "content = "+placeholder(len(args)))
		bumpVersion = true
	}
	if update.Category != nil {
		args = append(args, *update.Category)
		set = append(set, "category = "+placeholder(len(args)))
	}
	if update.Keywords != nil {
		args = append(args, *update.Keywords)
		set = append(set, "keywords = "+placeholder(len(args)))
	}
	if update.Embedding != nil {
		args = append(args, pgvector.NewVector(*update.Embedding))
		set = append(set, "embedding = "+placeholder(len(args)))
	}
	if update.Metadata != nil {
		if err := store.ValidateJSONColumn(*update.Metadata); err != nil {
			return nil, err
		}
		encoded, _ := json.Marshal(*update.Metadata)
		args = append(args, encoded)
		set = append(set, "metadata = "+placeholder(len(args)))
	}
	if update.Priority != nil {
		args = append(args, *update.Priority)
		set = append(set, "priority = "+placeholder(len(args)))
	}
	if bumpVersion {
		set = append(set, "version = version + 1")
	}

	args = append(args, update.TenantID, update.ID)
	stmt := "UPDATE knowledge_entry SET " + join(set, ", ") + " WHERE tenant_id = " + placeholder(len(args)-1) + " AND id = " + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge entry")
	}
	return d.getKnowledgeEntry(ctx, update.TenantID, update.ID)
}

func (d *DB) getKnowledgeEntry(ctx context.Context, tenantID, id string) (*store.KnowledgeEntry, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at
		 FROM knowledge_entry WHERE tenant_id = `+placeholder(1)+` AND id = `+placeholder(2), tenantID, id)
	return scanKnowledgeEntry(row)
}

func scanKnowledgeEntry(row interface{ Scan(...any) error }) (*store.KnowledgeEntry, error) {
	e := &store.KnowledgeEntry{}
	var meta []byte
	var vector pgvector.Vector
	err := row.Scan(&e.ID, &e.TenantID, &e.Kind, &e.Title, &e.Content, &e.Category, &e.Keywords, &vector, &meta, &e.Priority, &e.Active, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Embedding = vector.Slice()
	_ = json.Unmarshal(meta, &e.Metadata)
	return e, nil
}

func (d *DB) SoftDeleteKnowledgeEntry(ctx context.Context, tenantID, id string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE knowledge_entry SET active = false, updated_at = now() WHERE tenant_id = "+placeholder(1)+" AND id = "+placeholder(2),
		tenantID, id)
	return errors.Wrap(err, "failed to soft delete knowledge entry")
}

func (d *DB) ListKnowledgeEntries(ctx context.Context, find *store.FindKnowledge) ([]*store.KnowledgeEntry, error) {
	where, args := []string{"tenant_id = " + placeholder(1), "active = true"}, []any{find.TenantID}
	if len(find.Kinds) > 0 {
		kindPlaceholders := make([]string, len(find.Kinds))
		for i, k := range find.Kinds {
			args = append(args, k)
			kindPlaceholders[i] = placeholder(len(args))
		}
		where = append(where, "kind IN ("+join(kindPlaceholders, ", ")+")")
	}
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at
		FROM knowledge_entry WHERE ` + join(where, " AND ") + ` ORDER BY priority DESC LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list knowledge entries")
	}
	defer rows.Close()

	list := []*store.KnowledgeEntry{}
	for rows.Next() {
		e, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge entry")
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// SearchKnowledge performs pgvector cosine similarity search, normalised
// to [0,1] via (cos+1)/2 as specified. Only active entries are searched;
// results sort by (similarity desc, priority desc).
func (d *DB) SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]store.KnowledgeMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	vector := pgvector.NewVector(queryEmbedding)

	where := []string{"tenant_id = " + placeholder(1), "active = true"}
	args := []any{tenantID}
	if len(kinds) > 0 {
		kindPlaceholders := make([]string, len(kinds))
		for i, k := range kinds {
			args = append(args, k)
			kindPlaceholders[i] = placeholder(len(args))
		}
		where = append(where, "kind IN ("+join(kindPlaceholders, ", ")+")")
	}

	args = append(args, vector)
	simExpr := "((1 - (embedding <=> " + placeholder(len(args)) + ")) + 1) / 2"

	args = append(args, minSimilarity, limit)
	query := `SELECT id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at, ` +
		simExpr + ` AS similarity
		FROM knowledge_entry WHERE ` + join(where, " AND ") + ` AND ` + simExpr + ` >= ` + placeholder(len(args)-1) + `
		ORDER BY similarity DESC, priority DESC LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge")
	}
	defer rows.Close()

	matches := []store.KnowledgeMatch{}
	for rows.Next() {
		e := &store.KnowledgeEntry{}
		var meta []byte
		var vec pgvector.Vector
		var similarity float64
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Kind, &e.Title, &e.Content, &e.Category, &e.Keywords, &vec, &meta,
			&e.Priority, &e.Active, &e.Version, &e.CreatedAt, &e.UpdatedAt, &similarity); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge match")
		}
		e.Embedding = vec.Slice()
		_ = json.Unmarshal(meta, &e.Metadata)
		matches = append(matches, store.KnowledgeMatch{Entry: e, Similarity: similarity})
	}
	return matches, rows.Err()
}
