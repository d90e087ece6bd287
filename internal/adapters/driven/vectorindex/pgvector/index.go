// Package pgvector provides a vector index stored in PostgreSQL using
// the pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultTable    = "chunk_vectors"
	DefaultMaxConns = 10
	DefaultTimeout  = 5 * time.Second
)

// Config holds configuration for the pgvector index.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Dimensions is the vector size.
	Dimensions int

	// Table overrides DefaultTable.
	Table string

	// MaxConns caps the pool size (default: 10).
	MaxConns int32

	// Timeout bounds the startup ping (default: 5s).
	Timeout time.Duration
}

// Index stores chunk vectors in a vector(dim) column.
type Index struct {
	pool  *pgxpool.Pool
	table string
	dims  int
}

// New connects, ensures the extension and table exist, and checks the
// stored vector size matches Dimensions.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: pgvector DSN is required", domain.ErrInvalidConfig)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidConfig)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parse DSN: %w", domain.ErrInvalidConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %w", domain.ErrIndexUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrIndexUnavailable, err)
	}

	idx := &Index{pool: pool, table: pgx.Identifier{cfg.Table}.Sanitize(), dims: cfg.Dimensions}
	if err := idx.migrate(ctx, cfg.Table); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) migrate(ctx context.Context, table string) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			page INTEGER,
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (document_id, chunk_index)
		)`, i.table, i.dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{table + "_embedding_idx"}.Sanitize(), i.table),
	}
	for _, stmt := range stmts {
		if _, err := i.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %w", domain.ErrIndexUnavailable, err)
		}
	}

	// For vector columns atttypmod holds the declared dimension.
	var dims int
	err := i.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		i.table,
	).Scan(&dims)
	if err != nil {
		return fmt.Errorf("%w: read column type: %w", domain.ErrIndexUnavailable, err)
	}
	if dims != i.dims {
		return fmt.Errorf("%w: table %s stores %d dimensions, configured %d",
			domain.ErrDimensionMismatch, table, dims, i.dims)
	}
	return nil
}

// Upsert replaces every chunk of documentID in one transaction.
func (i *Index) Upsert(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error {
	if err := vectorindex.CheckDimensions(i.dims, chunks); err != nil {
		return err
	}

	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, i.table), documentID); err != nil {
		return unavailable("delete", err)
	}

	if len(chunks) > 0 {
		insert := fmt.Sprintf(
			`INSERT INTO %s (document_id, chunk_index, content, page, embedding) VALUES ($1, $2, $3, $4, $5)`,
			i.table)

		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(insert, documentID, c.Index, c.Text, c.Page, pgv.NewVector(c.Vector))
		}
		br := tx.SendBatch(ctx, batch)
		for n := range chunks {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return unavailable(fmt.Sprintf("insert chunk %d", n), err)
			}
		}
		if err := br.Close(); err != nil {
			return unavailable("insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// Search ranks chunks by cosine similarity. Ties order by chunk index
// then document ID.
func (i *Index) Search(ctx context.Context, query []float32, topK int, filter []string) ([]domain.SearchHit, error) {
	if err := vectorindex.CheckQuery(i.dims, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	sql := fmt.Sprintf(`SELECT document_id, chunk_index, content, page, 1 - (embedding <=> $1) AS score
		FROM %s`, i.table)
	args := []any{pgv.NewVector(query), topK}
	if len(filter) > 0 {
		sql += ` WHERE document_id = ANY($3)`
		args = append(args, filter)
	}
	sql += ` ORDER BY score DESC, chunk_index ASC, document_id ASC LIMIT $2`

	rows, err := i.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable("search", err)
	}
	defer rows.Close()

	hits := []domain.SearchHit{}
	for rows.Next() {
		var (
			h    domain.SearchHit
			page *int32
		)
		if err := rows.Scan(&h.DocumentID, &h.ChunkIndex, &h.Text, &page, &h.Score); err != nil {
			return nil, unavailable("scan", err)
		}
		if page != nil {
			h.Page = domain.IntPtr(int(*page))
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("search", err)
	}

	domain.SortHits(hits)
	return hits, nil
}

// Delete removes every chunk of documentID.
func (i *Index) Delete(ctx context.Context, documentID string) error {
	if _, err := i.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, i.table), documentID); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, i.table)).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dims
}

// Close closes the connection pool.
func (i *Index) Close() error {
	i.pool.Close()
	return nil
}

// unavailable wraps a database error. Errors reported by the server for
// a bad vector are dimension mismatches; everything else is transient.
func unavailable(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22000" {
		return fmt.Errorf("%w: %s: %w", domain.ErrDimensionMismatch, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
