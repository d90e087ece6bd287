package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// dbFile is the database file name inside the data directory.
const dbFile = "documents.db"

// Store is the SQLite implementation of driven.DocumentStore.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-docs/data/documents.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-docs", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL for concurrent readers; foreign keys are per connection so they
	// are set in the DSN for every pooled connection. Transactions take the
	// write lock at BEGIN so busy_timeout covers them.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

const documentColumns = `id, name, storage_path, content_hash, format, size_bytes, status, parser_id,
	error_message, metadata, raw_text, summary, chunk_count, processing_started_at, created_at, updated_at`

// Create stores a new document.
func (s *Store) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, doc.Status)
	}

	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Name, doc.StoragePath, doc.ContentHash, doc.Format, doc.SizeBytes,
		string(doc.Status), doc.ParserID, doc.ErrorMessage, metadataJSON, doc.RawText,
		doc.Summary, doc.ChunkCount, nullableNanos(doc.ProcessingStartedAt),
		doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano())
	if err != nil {
		return busy(fmt.Errorf("creating document: %w", err))
	}
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// List returns documents newest first, optionally restricted to one status.
func (s *Store) List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// FindByHash returns the newest document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE content_hash = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, hash)
	return scanDocument(row)
}

// Delete removes a document. Its chunks are removed by the foreign key cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return busy(fmt.Errorf("deleting document: %w", err))
	}
	return requireRow(res, domain.ErrNotFound)
}

// SaveSummary records the latest generated summary.
func (s *Store) SaveSummary(ctx context.Context, id, summary string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET summary = ?, updated_at = ? WHERE id = ?",
		summary, s.now().UnixNano(), id)
	if err != nil {
		return busy(fmt.Errorf("saving summary: %w", err))
	}
	return requireRow(res, domain.ErrNotFound)
}

// ==================== Lifecycle ====================

// Claim moves a pending document to processing. The conditional UPDATE
// makes the pending check and the write one atomic step.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = 'processing', processing_started_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, now.UnixNano(), now.UnixNano(), id)
	if err != nil {
		return false, busy(fmt.Errorf("claiming document: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, busy(fmt.Errorf("claiming document: %w", err))
	}
	if n == 1 {
		return true, nil
	}
	if err := s.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Complete moves a processing document to completed.
func (s *Store) Complete(ctx context.Context, id string, update domain.CompletedUpdate) error {
	metadataJSON, err := marshalMetadata(update.Metadata)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = 'completed', parser_id = ?, raw_text = ?, metadata = ?, chunk_count = ?,
			error_message = '', processing_started_at = NULL, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, update.ParserID, update.RawText, metadataJSON, update.ChunkCount, s.now().UnixNano(), id)
	if err != nil {
		return busy(fmt.Errorf("completing document: %w", err))
	}
	return s.transitioned(ctx, res, id)
}

// Fail moves a processing document to failed.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = 'failed', error_message = ?, processing_started_at = NULL, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, message, s.now().UnixNano(), id)
	if err != nil {
		return busy(fmt.Errorf("failing document: %w", err))
	}
	return s.transitioned(ctx, res, id)
}

// Resubmit moves a completed or failed document back to pending.
func (s *Store) Resubmit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = 'pending', error_message = '', processing_started_at = NULL, updated_at = ?
		WHERE id = ? AND status IN ('completed', 'failed')
	`, s.now().UnixNano(), id)
	if err != nil {
		return busy(fmt.Errorf("resubmitting document: %w", err))
	}
	return s.transitioned(ctx, res, id)
}

// ResetStale moves documents claimed before cutoff back to pending.
func (s *Store) ResetStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, busy(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM documents
		WHERE status = 'processing' AND processing_started_at < ?
		ORDER BY processing_started_at
	`, cutoff.UnixNano())
	if err != nil {
		return nil, busy(fmt.Errorf("querying stale documents: %w", err))
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, busy(fmt.Errorf("scanning stale document: %w", err))
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, busy(fmt.Errorf("iterating stale documents: %w", err))
	}

	reset := make([]string, 0, len(ids))
	now := s.now().UnixNano()
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET status = 'pending', processing_started_at = NULL, updated_at = ?
			WHERE id = ? AND status = 'processing' AND processing_started_at < ?
		`, now, id, cutoff.UnixNano())
		if err != nil {
			return nil, busy(fmt.Errorf("resetting document %s: %w", id, err))
		}
		if n, _ := res.RowsAffected(); n == 1 {
			reset = append(reset, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, busy(fmt.Errorf("committing transaction: %w", err))
	}
	return reset, nil
}

// transitioned converts a zero-row conditional update into ErrNotFound or
// ErrInvalidTransition.
func (s *Store) transitioned(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (s *Store) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	return nil
}

// ==================== Chunks ====================

// ReplaceChunks deletes a document's chunks and inserts the new set in one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return busy(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", documentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return busy(fmt.Errorf("checking document: %w", err))
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return busy(fmt.Errorf("deleting chunks: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, content, start_offset, end_offset, page, vector_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return busy(fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		var page sql.NullInt64
		if chunk.Page != nil {
			page = sql.NullInt64{Int64: int64(*chunk.Page), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, documentID, chunk.Index, chunk.Content,
			chunk.Start, chunk.End, page, chunk.VectorID); err != nil {
			return busy(fmt.Errorf("saving chunk %d: %w", chunk.Index, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return busy(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// GetChunks retrieves all chunks for a document in index order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, content, start_offset, end_offset, page, vector_id
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var (
			chunk domain.Chunk
			page  sql.NullInt64
		)
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content,
			&chunk.Start, &chunk.End, &page, &chunk.VectorID); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if page.Valid {
			chunk.Page = domain.IntPtr(int(page.Int64))
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		status       string
		metadataJSON string
		started      sql.NullInt64
		created      int64
		updated      int64
	)

	if err := row.Scan(&doc.ID, &doc.Name, &doc.StoragePath, &doc.ContentHash, &doc.Format,
		&doc.SizeBytes, &status, &doc.ParserID, &doc.ErrorMessage, &metadataJSON, &doc.RawText,
		&doc.Summary, &doc.ChunkCount, &started, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.Status(status)
	doc.CreatedAt = time.Unix(0, created)
	doc.UpdatedAt = time.Unix(0, updated)
	if started.Valid {
		t := time.Unix(0, started.Int64)
		doc.ProcessingStartedAt = &t
	}

	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

// busy marks lock contention as domain.ErrStoreBusy so callers retry it.
func busy(err error) error {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", domain.ErrStoreBusy, err)
		}
	}
	return err
}
