package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
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
	embedding, _ := json.Marshal(create.Embedding)

	stmt := `INSERT INTO knowledge_entry (id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at)
		VALUES (` + placeholders(14) + `)`
	_, err := d.db.ExecContext(ctx, stmt, id, create.TenantID, create.Kind, create.Title, create.Content,
		create.Category, create.Keywords, embedding, meta, create.Priority, true, 1, now, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create knowledge entry")
	}
	return &store.KnowledgeEntry{
		ID: id, TenantID: create.TenantID, Kind: create.Kind, Title: create.Title, Content: create.Content,
		Category: create.Category, Keywords: create.Keywords, Embedding: create.Embedding, Metadata: create.Metadata,
		Priority: create.Priority, Active: true, Version: 1, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (d *DB) UpdateKnowledgeEntry(ctx context.Context, update *store.UpdateKnowledgeEntry) (*store.KnowledgeEntry, error) {
	now := time.Now().UTC()
	set, args := []string{"updated_at = ?"}, []any{now}
	bumpVersion := false

	if update.Title != nil {
		args = append(args, *update.Title)
		set = append(set, "title = ?")
		bumpVersion = true
	}
	if update.Content != nil {
		args = append(args, *update.Content)
		set = append(set, "content = ?")
		bumpVersion = true
	}
	if update.Category != nil {
		args = append(args, *update.Category)
		set = append(set, "category = ?")
	}
	if update.Keywords != nil {
		args = append(args, *update.Keywords)
		set = append(set, "keywords = ?")
	}
	if update.Embedding != nil {
		encoded, _ := json.Marshal(*update.Embedding)
		args = append(args, encoded)
		set = append(set, "embedding = ?")
	}
	if update.Metadata != nil {
		if err := store.ValidateJSONColumn(*update.Metadata); err != nil {
			return nil, err
		}
		encoded, _ := json.Marshal(*update.Metadata)
		args = append(args, encoded)
		set = append(set, "metadata = ?")
	}
	if update.Priority != nil {
		args = append(args, *update.Priority)
		set = append(set, "priority = ?")
	}
	if bumpVersion {
		set = append(set, "version = version + 1")
	}

	args = append(args, update.TenantID, update.ID)
	stmt := "UPDATE knowledge_entry SET " + join(set, ", ") + " WHERE tenant_id = ? AND id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge entry")
	}
	return d.getKnowledgeEntry(ctx, update.TenantID, update.ID)
}

func (d *DB) getKnowledgeEntry(ctx context.Context, tenantID, id string) (*store.KnowledgeEntry, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at
		 FROM knowledge_entry WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanKnowledgeEntry(row)
}

func scanKnowledgeEntry(row interface{ Scan(...any) error }) (*store.KnowledgeEntry, error) {
	e := &store.KnowledgeEntry{}
	var meta, embedding []byte
	err := row.Scan(&e.ID, &e.TenantID, &e.Kind, &e.Title, &e.Content, &e.Category, &e.Keywords, &embedding, &meta, &e.Priority, &e.Active, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(embedding, &e.Embedding)
	_ = json.Unmarshal(meta, &e.Metadata)
	return e, nil
}

func (d *DB) SoftDeleteKnowledgeEntry(ctx context.Context, tenantID, id string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE knowledge_entry SET active = false, updated_at = ? WHERE tenant_id = ? AND id = ?",
		time.Now().UTC(), tenantID, id)
	return errors.Wrap(err, "failed to soft delete knowledge entry")
}

func (d *DB) ListKnowledgeEntries(ctx context.Context, find *store.FindKnowledge) ([]*store.KnowledgeEntry, error) {
	where, args := []string{"tenant_id = ?", "active = true"}, []any{find.TenantID}
	if len(find.Kinds) > 0 {
		kindPlaceholders := make([]string, len(find.Kinds))
		for i, k := range find.Kinds {
			args = append(args, k)
			kindPlaceholders[i] = "?"
		}
		where = append(where, "kind IN ("+join(kindPlaceholders, ", ")+")")
	}
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, tenant_id, kind, title, content, category, keywords, embedding, metadata, priority, active, version, created_at, updated_at
		FROM knowledge_entry WHERE ` + join(where, " AND ") + ` ORDER BY priority DESC LIMIT ?`
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

// SearchKnowledge has no native vector index to lean on, so it loads every
// active candidate for the tenant and scores cosine similarity in process.
// Fine at the catalog sizes this backend targets (development, single
// tenant); SearchKnowledge on postgres is the path for production scale.
func (d *DB) SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []store.KnowledgeKind, limit int, minSimilarity float64) ([]store.KnowledgeMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	entries, err := d.ListKnowledgeEntries(ctx, &store.FindKnowledge{TenantID: tenantID, Kinds: kinds, Limit: math.MaxInt32})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candidates for knowledge search")
	}

	matches := make([]store.KnowledgeMatch, 0, len(entries))
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		sim := (cosineSimilarity(queryEmbedding, e.Embedding) + 1) / 2
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, store.KnowledgeMatch{Entry: e, Similarity: sim})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entry.Priority > matches[j].Entry.Priority
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
