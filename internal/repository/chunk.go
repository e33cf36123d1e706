package repository

import (
	"context"
	"time"

	"github.com/docsage/docsage/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists embedded document chunks and serves vector search.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// UpsertBatch inserts or overwrites chunks keyed by chunk_id. Re-ingesting
// the same document and page layout overwrites rather than duplicates.
func (r *ChunkRepository) UpsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.pool.Exec(ctx,
			`INSERT INTO chunks (chunk_id, source, page, chunk_index, content, embedding, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			 ON CONFLICT (chunk_id) DO UPDATE SET
				source = EXCLUDED.source,
				page = EXCLUDED.page,
				chunk_index = EXCLUDED.chunk_index,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				updated_at = EXCLUDED.updated_at`,
			c.ChunkID,
			c.Source,
			c.Page,
			c.ChunkIndex,
			c.Text,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return domain.NewStoreError("failed to upsert chunk", err)
		}
	}

	return nil
}

// DeleteBySource removes every chunk belonging to a source filename and
// returns the count removed.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE source = $1`, source)
	if err != nil {
		return 0, domain.NewStoreError("failed to delete chunks", err)
	}
	return tag.RowsAffected(), nil
}

// ListSources returns each distinct source with its chunk count, sorted by
// name.
func (r *ChunkRepository) ListSources(ctx context.Context) ([]domain.SourceInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM chunks GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, domain.NewStoreError("failed to list sources", err)
	}
	defer rows.Close()

	sources := make([]domain.SourceInfo, 0)
	for rows.Next() {
		var s domain.SourceInfo
		if err := rows.Scan(&s.Name, &s.ChunkCount); err != nil {
			return nil, domain.NewStoreError("failed to scan source", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to list sources", err)
	}
	return sources, nil
}

// Preview returns the first limit chunk texts for a source in chunk order.
func (r *ChunkRepository) Preview(ctx context.Context, source string, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT content FROM chunks WHERE source = $1 ORDER BY page, chunk_index LIMIT $2`,
		source, limit)
	if err != nil {
		return nil, domain.NewStoreError("failed to preview source", err)
	}
	defer rows.Close()

	texts := make([]string, 0, limit)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, domain.NewStoreError("failed to scan preview", err)
		}
		texts = append(texts, text)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to preview source", err)
	}
	return texts, nil
}

// Search returns up to limit chunks nearest to the query vector, scored by
// cosine similarity and sorted descending.
func (r *ChunkRepository) Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = 6
	}

	rows, err := r.pool.Query(ctx,
		`SELECT chunk_id, source, content, 1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, domain.NewStoreError("vector search failed", err)
	}
	defer rows.Close()

	hits := make([]domain.SearchHit, 0, limit)
	for rows.Next() {
		var hit domain.SearchHit
		var score float64
		if err := rows.Scan(&hit.ChunkID, &hit.Source, &hit.Text, &score); err != nil {
			return nil, domain.NewStoreError("failed to scan search hit", err)
		}
		hit.Score = float32(score)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("vector search failed", err)
	}
	return hits, nil
}

// Stats reports total chunk and distinct source counts.
func (r *ChunkRepository) Stats(ctx context.Context) (domain.DocumentStats, error) {
	var stats domain.DocumentStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source) FROM chunks`).
		Scan(&stats.TotalChunks, &stats.TotalSources)
	if err != nil {
		return domain.DocumentStats{}, domain.NewStoreError("failed to read stats", err)
	}
	return stats, nil
}
