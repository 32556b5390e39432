package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

const metaVectorProvider = "vector_provider"

// SaveLexical upserts a lexical entry.
func (s *indexStore) SaveLexical(ctx context.Context, entry domain.LexicalEntry) error {
	titleJSON, err := json.Marshal(entry.TitleTF)
	if err != nil {
		return fmt.Errorf("marshalling title terms: %w", err)
	}
	bodyJSON, err := json.Marshal(entry.BodyTF)
	if err != nil {
		return fmt.Errorf("marshalling body terms: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO lexical_entries (chunk_id, version, title_terms, body_terms, title_len, body_len)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			version = excluded.version,
			title_terms = excluded.title_terms,
			body_terms = excluded.body_terms,
			title_len = excluded.title_len,
			body_len = excluded.body_len
	`, entry.ChunkID, entry.Version, string(titleJSON), string(bodyJSON), entry.TitleLen, entry.BodyLen)
	if err != nil {
		return fmt.Errorf("saving lexical entry: %w", err)
	}
	return nil
}

// DeleteLexical removes a lexical entry.
func (s *indexStore) DeleteLexical(ctx context.Context, chunkID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM lexical_entries WHERE chunk_id = ?`, chunkID); err != nil {
		return fmt.Errorf("deleting lexical entry: %w", err)
	}
	return nil
}

// LoadLexical returns every lexical entry.
func (s *indexStore) LoadLexical(ctx context.Context) ([]domain.LexicalEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, version, title_terms, body_terms, title_len, body_len FROM lexical_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("querying lexical entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LexicalEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.LexicalEntry
		var titleJSON, bodyJSON string
		if err := rows.Scan(&e.ChunkID, &e.Version, &titleJSON, &bodyJSON, &e.TitleLen, &e.BodyLen); err != nil {
			return nil, fmt.Errorf("scanning lexical entry: %w", err)
		}
		if err := json.Unmarshal([]byte(titleJSON), &e.TitleTF); err != nil {
			return nil, fmt.Errorf("unmarshalling title terms: %w", err)
		}
		if err := json.Unmarshal([]byte(bodyJSON), &e.BodyTF); err != nil {
			return nil, fmt.Errorf("unmarshalling body terms: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lexical entries: %w", err)
	}
	return entries, nil
}

// SaveVector upserts a vector entry.
func (s *indexStore) SaveVector(ctx context.Context, entry domain.VectorEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO vector_entries (chunk_id, version, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			version = excluded.version,
			embedding = excluded.embedding
	`, entry.ChunkID, entry.Version, float32SliceToBytes(entry.Embedding))
	if err != nil {
		return fmt.Errorf("saving vector entry: %w", err)
	}
	return nil
}

// DeleteVector removes a vector entry.
func (s *indexStore) DeleteVector(ctx context.Context, chunkID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM vector_entries WHERE chunk_id = ?`, chunkID); err != nil {
		return fmt.Errorf("deleting vector entry: %w", err)
	}
	return nil
}

// LoadVectors returns every vector entry.
func (s *indexStore) LoadVectors(ctx context.Context) ([]domain.VectorEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT chunk_id, version, embedding FROM vector_entries`)
	if err != nil {
		return nil, fmt.Errorf("querying vector entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.VectorEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.VectorEntry
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &e.Version, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector entry: %w", err)
		}
		e.Embedding = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector entries: %w", err)
	}
	return entries, nil
}

// VectorProvider returns the provider id of the stored vectors.
func (s *indexStore) VectorProvider(ctx context.Context) (string, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, metaVectorProvider).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading vector provider: %w", err)
	}
	return value, nil
}

// ResetVectors drops all vectors and records the new provider id atomically.
func (s *indexStore) ResetVectors(ctx context.Context, providerID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_entries`); err != nil {
		return fmt.Errorf("clearing vector entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaVectorProvider, providerID); err != nil {
		return fmt.Errorf("saving vector provider: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
