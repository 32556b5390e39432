package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const documentColumns = `id, filename, title, source_hash, imported_at, updated_at, deleted`

const chunkColumns = `id, document_id, heading_path, title, marker_level, body, ordinal, version, deleted, updated_at`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateDocument stores a document and its chunks in one transaction.
func (s *chunkStore) CreateDocument(ctx context.Context, doc domain.Document, drafts []domain.ChunkDraft) ([]domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunks, err := createDocument(ctx, tx, doc, drafts, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunks, nil
}

// ReplaceDocument soft-deletes oldID and stores doc in one transaction.
func (s *chunkStore) ReplaceDocument(
	ctx context.Context, oldID string, doc domain.Document, drafts []domain.ChunkDraft,
) ([]domain.Chunk, []domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	removed, err := deleteDocument(ctx, tx, oldID, now)
	if err != nil {
		return nil, nil, err
	}
	created, err := createDocument(ctx, tx, doc, drafts, now)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}
	return removed, created, nil
}

func createDocument(
	ctx context.Context, tx *sql.Tx, doc domain.Document, drafts []domain.ChunkDraft, now time.Time,
) ([]domain.Chunk, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ImportedAt.IsZero() {
		doc.ImportedAt = now
	}
	doc.UpdatedAt = now

	var exists int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE deleted = 0 AND (title = ? OR filename = ?)
	`, doc.Title, doc.Filename).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking document: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("document %q: %w", doc.Title, domain.ErrAlreadyExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, doc.ID, doc.Filename, doc.Title, doc.SourceHash, doc.ImportedAt, doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("document %q: %w", doc.Title, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("saving document: %w", err)
	}

	return insertChunks(ctx, tx, doc.ID, 0, drafts, now)
}

// AddChunks appends drafts after the document's highest ordinal.
func (s *chunkStore) AddChunks(ctx context.Context, documentID string, drafts []domain.ChunkDraft) ([]domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := getDocument(ctx, tx, "id = ?", documentID); err != nil {
		return nil, err
	}

	// Deleted rows still hold their ordinals until purge.
	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ordinal) + 1, 0) FROM chunks WHERE document_id = ?
	`, documentID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("reading last ordinal: %w", err)
	}

	now := time.Now().UTC()
	chunks, err := insertChunks(ctx, tx, documentID, next, drafts, now)
	if err != nil {
		return nil, err
	}
	if err := touchDocument(ctx, tx, documentID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunks, nil
}

// GetDocument retrieves a live document by ID.
func (s *chunkStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return getDocument(ctx, s.store.db, "id = ?", id)
}

// GetDocumentByTitle retrieves a live document by title.
func (s *chunkStore) GetDocumentByTitle(ctx context.Context, title string) (*domain.Document, error) {
	return getDocument(ctx, s.store.db, "title = ?", title)
}

// GetDocumentByFilename retrieves a live document by filename.
func (s *chunkStore) GetDocumentByFilename(ctx context.Context, filename string) (*domain.Document, error) {
	return getDocument(ctx, s.store.db, "filename = ?", filename)
}

// ListDocuments returns all live documents ordered by title.
func (s *chunkStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE deleted = 0 ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
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

// DeleteDocument soft-deletes a document and its live chunks.
func (s *chunkStore) DeleteDocument(ctx context.Context, id string) ([]domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunks, err := deleteDocument(ctx, tx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunks, nil
}

// deleteDocument soft-deletes a live document and returns its chunks as
// they are after the delete.
func deleteDocument(ctx context.Context, tx *sql.Tx, id string, now time.Time) ([]domain.Chunk, error) {
	if _, err := getDocument(ctx, tx, "id = ?", id); err != nil {
		return nil, err
	}

	chunks, err := listChunks(ctx, tx, `document_id = ? AND deleted = 0`, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chunks SET deleted = 1, version = version + 1, updated_at = ?
		WHERE document_id = ? AND deleted = 0
	`, now, id); err != nil {
		return nil, fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET deleted = 1, updated_at = ? WHERE id = ?
	`, now, id); err != nil {
		return nil, fmt.Errorf("deleting document: %w", err)
	}

	for i := range chunks {
		chunks[i].Deleted = true
		chunks[i].Version++
		chunks[i].UpdatedAt = now
	}
	return chunks, nil
}

// GetChunk retrieves a live chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	return getChunk(ctx, s.store.db, id)
}

// UpdateChunk replaces a chunk body with a version compare-and-swap.
func (s *chunkStore) UpdateChunk(ctx context.Context, id string, expectedVersion int64, body string) (*domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE chunks SET body = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND deleted = 0 AND (? = 0 OR version = ?)
	`, body, now, id, expectedVersion, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("updating chunk: %w", err)
	}
	if err := casOutcome(ctx, tx, res, id); err != nil {
		return nil, err
	}

	chunk, err := getChunk(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := touchDocument(ctx, tx, chunk.DocumentID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunk, nil
}

// DeleteChunk soft-deletes a chunk and increments its version.
func (s *chunkStore) DeleteChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunk, err := getChunk(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE chunks SET deleted = 1, version = version + 1, updated_at = ? WHERE id = ?
	`, now, id); err != nil {
		return nil, fmt.Errorf("deleting chunk: %w", err)
	}
	if err := touchDocument(ctx, tx, chunk.DocumentID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	chunk.Deleted = true
	chunk.Version++
	chunk.UpdatedAt = now
	return chunk, nil
}

// ListChunks returns a document's live chunks in ordinal order.
func (s *chunkStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return listChunks(ctx, s.store.db, `document_id = ? AND deleted = 0`, documentID)
}

// ListChunksByPathPrefix returns live chunks under a heading path prefix.
func (s *chunkStore) ListChunksByPathPrefix(ctx context.Context, documentID string, prefix []string) ([]domain.Chunk, error) {
	key := pathKey(prefix)
	chunks, err := listChunks(ctx, s.store.db,
		`document_id = ? AND deleted = 0 AND substr(path_key, 1, length(?)) = ?`,
		documentID, key, key)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("path %q: %w", strings.Join(prefix, domain.TopicSeparator), domain.ErrNotFound)
	}
	return chunks, nil
}

// ListLiveChunks returns every live chunk of every live document.
func (s *chunkStore) ListLiveChunks(ctx context.Context) ([]domain.Chunk, error) {
	return listChunks(ctx, s.store.db, `deleted = 0`)
}

// Purge permanently removes soft-deleted rows.
func (s *chunkStore) Purge(ctx context.Context) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE deleted = 1`)
	if err != nil {
		return 0, fmt.Errorf("purging chunks: %w", err)
	}
	n, _ := res.RowsAffected()

	// Remaining chunks of deleted documents go with them via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE deleted = 1`); err != nil {
		return 0, fmt.Errorf("purging documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(n), nil
}

// ==================== Chunk Store Helpers ====================

func insertChunks(ctx context.Context, tx *sql.Tx, documentID string, firstOrdinal int,
	drafts []domain.ChunkDraft, now time.Time) ([]domain.Chunk, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, heading_path, path_key, title, marker_level,
			body, ordinal, version, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	chunks := make([]domain.Chunk, 0, len(drafts))
	for i, d := range drafts {
		path := d.HeadingPath
		if path == nil {
			path = []string{}
		}
		pathJSON, err := json.Marshal(path)
		if err != nil {
			return nil, fmt.Errorf("marshalling heading path: %w", err)
		}

		chunk := domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			HeadingPath: d.HeadingPath,
			Title:       d.Title,
			MarkerLevel: d.MarkerLevel,
			Body:        d.Body,
			Ordinal:     firstOrdinal + i,
			Version:     1,
			UpdatedAt:   now,
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, documentID, string(pathJSON), pathKey(d.HeadingPath),
			chunk.Title, chunk.MarkerLevel, chunk.Body, chunk.Ordinal, now); err != nil {
			return nil, fmt.Errorf("saving chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// casOutcome maps a zero-row conditional update to NotFound or Conflict.
func casOutcome(ctx context.Context, q queryer, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := getChunk(ctx, q, id); err != nil {
		return err
	}
	return fmt.Errorf("chunk %s: %w", id, domain.ErrConflict)
}

func touchDocument(ctx context.Context, q queryer, documentID string, now time.Time) error {
	if _, err := q.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`, now, documentID); err != nil {
		return fmt.Errorf("touching document: %w", err)
	}
	return nil
}

func getDocument(ctx context.Context, q queryer, where string, arg any) (*domain.Document, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE deleted = 0 AND `+where, arg)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %v: %w", arg, domain.ErrNotFound)
	}
	return doc, err
}

func getChunk(ctx context.Context, q queryer, id string) (*domain.Chunk, error) {
	row := q.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.heading_path, c.title, c.marker_level, c.body,
			c.ordinal, c.version, c.deleted, c.updated_at
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.id = ? AND c.deleted = 0 AND d.deleted = 0
	`, id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return chunk, err
}

func listChunks(ctx context.Context, q queryer, where string, args ...any) ([]domain.Chunk, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks WHERE `+where+` ORDER BY document_id, ordinal
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var deleted int
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Title, &doc.SourceHash,
		&doc.ImportedAt, &doc.UpdatedAt, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Deleted = deleted != 0
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var pathJSON string
	var deleted int
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &pathJSON, &chunk.Title, &chunk.MarkerLevel,
		&chunk.Body, &chunk.Ordinal, &chunk.Version, &deleted, &chunk.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if err := json.Unmarshal([]byte(pathJSON), &chunk.HeadingPath); err != nil {
		return nil, fmt.Errorf("unmarshalling heading path: %w", err)
	}
	if len(chunk.HeadingPath) == 0 {
		chunk.HeadingPath = nil
	}
	chunk.Deleted = deleted != 0
	return &chunk, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
