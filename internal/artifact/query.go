// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/market-edge/pkg/types"
)

// MatchOptions narrows a semantic query.
type MatchOptions struct {
	// TopK limits the result count. Zero uses the store default.
	TopK int

	// Kind restricts matches to artifacts of one report type.
	Kind types.ArtifactKind
}

// Query returns the text of the topK chunks most similar to text, most
// similar first.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]string, error) {
	matches, err := s.Match(ctx, text, MatchOptions{TopK: topK})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Text
	}
	return out, nil
}

// Match embeds text and ranks stored chunks by cosine similarity. Equal
// scores keep insertion order.
func (s *Store) Match(ctx context.Context, text string, opts MatchOptions) ([]types.ChunkMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.ValidationError{Field: "query", Reason: "is empty"}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.topK
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))
	}
	query := vectors[0]

	sqlText := `SELECT c.artifact_id, c.chunk_index, c.text, c.metadata, c.vector
		FROM chunks c`
	var args []any
	if opts.Kind != "" {
		sqlText += ` JOIN artifacts a ON a.id = c.artifact_id WHERE a.type = ?`
		args = append(args, string(opts.Kind))
	}
	sqlText += ` ORDER BY c.rowid`

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var matches []types.ChunkMatch
	for rows.Next() {
		var m types.ChunkMatch
		var metaJSON, vecJSON string
		if err := rows.Scan(&m.ArtifactID, &m.Index, &m.Text, &metaJSON, &vecJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s[%d]: %w", m.ArtifactID, m.Index, err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			return nil, fmt.Errorf("decoding vector of %s[%d]: %w", m.ArtifactID, m.Index, err)
		}
		m.Score = Cosine(query, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
