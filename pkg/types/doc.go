// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the market-edge pipeline:
// conversations submitted to generative backends, the structured report
// produced by each stage, artifact metadata, configuration, and the error
// taxonomy shared by every stage.
package types
