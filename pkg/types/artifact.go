// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ArtifactKind names the report type an artifact was produced from.
type ArtifactKind string

const (
	KindCustomerDiscovery   ArtifactKind = "customer_discovery"
	KindMarketAnalysis      ArtifactKind = "market_analysis"
	KindMarketTrend         ArtifactKind = "market_trend"
	KindMarketExpansion     ArtifactKind = "market_expansion"
	KindProductEvolution    ArtifactKind = "product_evolution"
	KindCompetitiveAnalysis ArtifactKind = "competitive_analysis"
)

// ArtifactMetadata travels with an artifact and is replicated onto every
// chunk cut from it.
type ArtifactMetadata struct {
	Kind        ArtifactKind `json:"type" yaml:"type"`
	Subject     string       `json:"subject" yaml:"subject"`
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
}

// Artifact is the write-once textual form of a completed stage report.
type Artifact struct {
	ID       string           `json:"id" yaml:"id"`
	Text     string           `json:"text" yaml:"text"`
	Metadata ArtifactMetadata `json:"metadata" yaml:"metadata"`
}

// Chunk is a fixed-width slice of an artifact's text. Index is the chunk's
// position inside its parent.
type Chunk struct {
	ArtifactID string           `json:"artifact_id" yaml:"artifact_id"`
	Index      int              `json:"chunk_index" yaml:"chunk_index"`
	Text       string           `json:"text" yaml:"text"`
	Metadata   ArtifactMetadata `json:"metadata" yaml:"metadata"`
}

// ChunkMatch is a chunk returned by a semantic query with its similarity.
type ChunkMatch struct {
	Chunk
	Score float64 `json:"score" yaml:"score"`
}
