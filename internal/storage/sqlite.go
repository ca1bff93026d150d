package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragserver/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Document operations

const documentColumns = `id, filename, content, format, file_size, chunk_count, created_at, updated_at`

// createDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createDocumentWithQuerier(ctx context.Context, q querier, doc *types.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	query := `
		INSERT INTO documents (id, filename, content, format, file_size, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		doc.ID, doc.Filename, doc.Content, string(doc.Format),
		doc.FileSize, doc.ChunkCount, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", doc.Filename, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *types.Document) error {
	return s.createDocumentWithQuerier(ctx, s.querier(), doc)
}

func scanDocument(row *sql.Row) (*types.Document, error) {
	var doc types.Document
	var format string
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.Content, &format,
		&doc.FileSize, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Format = types.Format(format)
	return &doc, nil
}

// getDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, id string) (*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	return scanDocument(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), id)
}

// getDocumentByFilenameWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDocumentByFilenameWithQuerier(ctx context.Context, q querier, filename string) (*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE filename = ?`
	return scanDocument(q.QueryRowContext(ctx, query, filename))
}

func (s *SQLiteStorage) GetDocumentByFilename(ctx context.Context, filename string) (*types.Document, error) {
	return s.getDocumentByFilenameWithQuerier(ctx, s.querier(), filename)
}

// listDocumentsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier) ([]*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY filename`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*types.Document, 0)
	for rows.Next() {
		var doc types.Document
		var format string
		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.Content, &format,
			&doc.FileSize, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		doc.Format = types.Format(format)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier())
}

// deleteDocumentWithQuerier is the internal implementation that uses a querier.
// Chunks cascade via the foreign key.
func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), id)
}

// deleteDocumentByFilenameWithQuerier is the internal implementation that uses a querier.
// Missing documents are not an error; replace-by-filename relies on this
// being a no-op for first-time uploads.
func (s *SQLiteStorage) deleteDocumentByFilenameWithQuerier(ctx context.Context, q querier, filename string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM documents WHERE filename = ?`, filename)
	return err
}

func (s *SQLiteStorage) DeleteDocumentByFilename(ctx context.Context, filename string) error {
	return s.deleteDocumentByFilenameWithQuerier(ctx, s.querier(), filename)
}

// Chunk operations

// createChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createChunksWithQuerier(ctx context.Context, q querier, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO chunks (id, document_id, content, chunk_index, token_count, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		var blob []byte
		if len(chunk.Embedding) > 0 {
			blob = serializeVector(chunk.Embedding)
		}
		_, err := q.ExecContext(ctx, query,
			chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.ChunkIndex, chunk.TokenCount, blob, now)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
		chunk.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) CreateChunks(ctx context.Context, chunks []*types.Chunk) error {
	return s.createChunksWithQuerier(ctx, s.querier(), chunks)
}

// getChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID string) (*types.Chunk, error) {
	query := `
		SELECT id, document_id, content, chunk_index, token_count, embedding, created_at
		FROM chunks
		WHERE id = ?
	`
	var chunk types.Chunk
	var blob []byte
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.ChunkIndex, &chunk.TokenCount, &blob, &chunk.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		chunk.Embedding = deserializeVector(blob)
	}
	return &chunk, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

// listChunksByDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksByDocumentWithQuerier(ctx context.Context, q querier, documentID string) ([]*types.Chunk, error) {
	query := `
		SELECT id, document_id, content, chunk_index, token_count, embedding, created_at
		FROM chunks
		WHERE document_id = ?
		ORDER BY chunk_index
	`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*types.Chunk, 0)
	for rows.Next() {
		var chunk types.Chunk
		var blob []byte
		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Content,
			&chunk.ChunkIndex, &chunk.TokenCount, &blob, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(blob) > 0 {
			chunk.Embedding = deserializeVector(blob)
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID string) ([]*types.Chunk, error) {
	return s.listChunksByDocumentWithQuerier(ctx, s.querier(), documentID)
}

// countWithQuerier runs a COUNT(*) over the named table
func countWithQuerier(ctx context.Context, q querier, table string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "documents")
}

func (s *SQLiteStorage) CountChunks(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "chunks")
}

// Search operations

func (s *SQLiteStorage) SearchDense(ctx context.Context, vector []float32, limit int) ([]ChunkHit, error) {
	return searchDense(ctx, s.querier(), vector, limit)
}

func (s *SQLiteStorage) SearchLexical(ctx context.Context, query string, limit int) ([]ChunkHit, error) {
	return searchLexical(ctx, s.querier(), query, limit)
}

func (s *SQLiteStorage) SearchTrigram(ctx context.Context, query string, threshold float64, limit int) ([]ChunkHit, error) {
	return searchTrigram(ctx, s.querier(), query, threshold, limit)
}

// Status operations

func (s *SQLiteStorage) Status(ctx context.Context) (*Status, error) {
	return s.statusWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) statusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{SchemaVersion: CurrentSchemaVersion}

	docCount, err := countWithQuerier(ctx, q, "documents")
	if err != nil {
		return nil, err
	}
	status.DocumentCount = docCount

	chunkCount, err := countWithQuerier(ctx, q, "chunks")
	if err != nil {
		return nil, err
	}
	status.ChunkCount = chunkCount

	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      true, // FTS table is created with migrations
		VectorSearchNative: VectorExtensionAvailable,
	}

	return status, nil
}

// isUniqueViolation reports whether err is a unique constraint failure.
// Both drivers surface the SQLite error text, so string matching is the
// portable check.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Transaction implementations delegate to the internal helpers that
// accept a querier

func (t *sqliteTx) CreateDocument(ctx context.Context, doc *types.Document) error {
	return t.storage.createDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetDocumentByFilename(ctx context.Context, filename string) (*types.Document, error) {
	return t.storage.getDocumentByFilenameWithQuerier(ctx, t.querier(), filename)
}

func (t *sqliteTx) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, id string) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) DeleteDocumentByFilename(ctx context.Context, filename string) error {
	return t.storage.deleteDocumentByFilenameWithQuerier(ctx, t.querier(), filename)
}

func (t *sqliteTx) CreateChunks(ctx context.Context, chunks []*types.Chunk) error {
	return t.storage.createChunksWithQuerier(ctx, t.querier(), chunks)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) ListChunksByDocument(ctx context.Context, documentID string) ([]*types.Chunk, error) {
	return t.storage.listChunksByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) CountDocuments(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "documents")
}

func (t *sqliteTx) CountChunks(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "chunks")
}

func (t *sqliteTx) SearchDense(ctx context.Context, vector []float32, limit int) ([]ChunkHit, error) {
	return searchDense(ctx, t.querier(), vector, limit)
}

func (t *sqliteTx) SearchLexical(ctx context.Context, query string, limit int) ([]ChunkHit, error) {
	return searchLexical(ctx, t.querier(), query, limit)
}

func (t *sqliteTx) SearchTrigram(ctx context.Context, query string, threshold float64, limit int) ([]ChunkHit, error) {
	return searchTrigram(ctx, t.querier(), query, threshold, limit)
}

func (t *sqliteTx) Status(ctx context.Context) (*Status, error) {
	return t.storage.statusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
