// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact persists completed stage reports as text, cuts them into
// fixed-width word chunks and answers semantic similarity queries over the
// chunk embeddings.
package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "artifacts.db"
)

// Store manages the artifact SQLite database. Inserts are append-only; an
// artifact is never updated after it is written.
type Store struct {
	db         *sql.DB
	dir        string
	embedder   Embedder
	chunkWords int
	topK       int
	logger     *zap.Logger
}

// NewStore opens or creates the artifact database at dir/index/artifacts.db.
func NewStore(cfg types.ArtifactConfig, embedder Embedder, logger *zap.Logger) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("artifact store needs an embedder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	chunkWords := cfg.ChunkWords
	if chunkWords <= 0 {
		chunkWords = 500
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		embedder:   embedder,
		chunkWords: chunkWords,
		topK:       topK,
		logger:     logger.Named("artifact"),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			subject TEXT,
			generated_at TEXT NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact_id TEXT NOT NULL REFERENCES artifacts(id),
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL,
			vector TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_artifact_id ON chunks(artifact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_type ON artifacts(type)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert writes text as a new artifact and indexes its chunks. Every call
// creates a fresh artifact, so re-submitting the same report stores a
// parallel copy. All chunks are embedded in one batch and written in a
// single transaction; on error nothing is stored.
func (s *Store) Upsert(ctx context.Context, text string, meta types.ArtifactMetadata) (string, error) {
	if meta.Kind == "" {
		return "", &types.ValidationError{Field: "metadata.type", Reason: "is required"}
	}
	pieces := ChunkWords(text, s.chunkWords)
	if len(pieces) == 0 {
		return "", &types.ValidationError{Field: "text", Reason: "is empty"}
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	vectors, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return "", fmt.Errorf("embedding %d chunks: %w", len(pieces), err)
	}
	if len(vectors) != len(pieces) {
		return "", fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(pieces))
	}

	id := uuid.NewString()
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (id, type, subject, generated_at, text) VALUES (?, ?, ?, ?, ?)`,
		id, string(meta.Kind), meta.Subject, meta.GeneratedAt.Format(time.RFC3339Nano), text,
	); err != nil {
		return "", fmt.Errorf("inserting artifact: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (artifact_id, chunk_index, text, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, piece := range pieces {
		vecJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return "", fmt.Errorf("marshaling vector %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, piece, string(metaJSON), string(vecJSON)); err != nil {
			return "", fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing artifact: %w", err)
	}

	s.logger.Info("artifact stored",
		zap.String("id", id),
		zap.String("type", string(meta.Kind)),
		zap.String("subject", meta.Subject),
		zap.Int("chunks", len(pieces)))
	return id, nil
}

// Get returns the artifact with id.
func (s *Store) Get(ctx context.Context, id string) (types.Artifact, error) {
	var a types.Artifact
	var kind, generated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, type, subject, generated_at, text FROM artifacts WHERE id = ?`, id,
	).Scan(&a.ID, &kind, &a.Metadata.Subject, &generated, &a.Text)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("loading artifact %s: %w", id, err)
	}
	a.Metadata.Kind = types.ArtifactKind(kind)
	a.Metadata.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generated)
	return a, nil
}

// List returns every artifact, optionally filtered by kind, in insertion order.
func (s *Store) List(ctx context.Context, kind types.ArtifactKind) ([]types.Artifact, error) {
	query := `SELECT id, type, subject, generated_at, text FROM artifacts`
	var args []any
	if kind != "" {
		query += ` WHERE type = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []types.Artifact
	for rows.Next() {
		var a types.Artifact
		var k, generated string
		if err := rows.Scan(&a.ID, &k, &a.Metadata.Subject, &generated, &a.Text); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.Metadata.Kind = types.ArtifactKind(k)
		a.Metadata.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generated)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ChunkCount returns the number of chunks stored for artifact id.
func (s *Store) ChunkCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chunks WHERE artifact_id = ?`, id,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
