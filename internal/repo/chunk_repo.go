package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/coursepilot/backend/internal/model"
)

// ChunkRepo persists embedded chunks and runs the pgvector nearest-neighbor
// queries.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Replace swaps the chunk set of a material in one transaction: old chunks
// are removed and the new set inserted, so readers never observe a
// half-indexed document. Callers must have embeddings for every chunk
// before calling.
func (r *ChunkRepo) Replace(ctx context.Context, materialID string, chunks []model.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE material_id = $1", materialID); err != nil {
		return err
	}
	const insert = `
		INSERT INTO document_chunks
			(id, material_id, chunk_text, chunk_index, embedding, file_name,
			 page_number, category, topic, week_number, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.MaterialID, c.ChunkText, c.ChunkIndex, pgvector.NewVector(c.Embedding),
			c.FileName, nullableInt(c.PageNumber), nullableStr(c.Category), nullableStr(c.Topic),
			nullableInt(c.WeekNumber), c.Ctime,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ChunkRepo) DeleteByMaterial(ctx context.Context, materialID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM document_chunks WHERE material_id = $1", materialID)
	return err
}

// Search runs cosine nearest-neighbor retrieval with a similarity floor and
// optional category/week predicates. Results come back similarity-descending
// with the raw (still enriched) chunk text.
func (r *ChunkRepo) Search(ctx context.Context, embedding []float32, threshold float32, limit int, category *string, week *int) ([]model.ChunkResult, error) {
	const query = `
		SELECT id, material_id, chunk_text, chunk_index, file_name, page_number,
			category, topic, week_number, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE 1 - (embedding <=> $1) >= $2
			AND ($3::text IS NULL OR category = $3)
			AND ($4::int IS NULL OR week_number = $4)
		ORDER BY embedding <=> $1
		LIMIT $5
	`
	var categoryArg interface{}
	if category != nil && *category != "" {
		categoryArg = *category
	}
	var weekArg interface{}
	if week != nil {
		weekArg = *week
	}
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), threshold, categoryArg, weekArg, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.ChunkResult, 0)
	for rows.Next() {
		var res model.ChunkResult
		var page, weekNum sql.NullInt64
		var cat, topic sql.NullString
		if err := rows.Scan(&res.ID, &res.MaterialID, &res.ChunkText, &res.ChunkIndex, &res.FileName,
			&page, &cat, &topic, &weekNum, &res.Similarity); err != nil {
			return nil, err
		}
		if page.Valid {
			p := int(page.Int64)
			res.PageNumber = &p
		}
		res.Category = cat.String
		res.Topic = topic.String
		if weekNum.Valid {
			w := int(weekNum.Int64)
			res.WeekNumber = &w
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) CountByMaterial(ctx context.Context, materialID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM document_chunks WHERE material_id = $1", materialID).Scan(&count)
	return count, err
}

func (r *ChunkRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM document_chunks").Scan(&count)
	return count, err
}

func nullableStr(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
