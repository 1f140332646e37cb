// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"context"

	"github.com/pdiddy/market-edge/pkg/types"
)

// AnalystPrompt is the system turn placed ahead of every chat conversation.
const AnalystPrompt = `You are Market Edge Analyzer, a market intelligence assistant. You give data-driven answers across:

1. Market analysis: trends, size estimates and growth projections
2. Competitive intelligence: competitor positioning and strategic advantages
3. Customer insights: behaviour patterns, segmentation and preferences
4. Product strategy: product evolution, feature analysis and market fit
5. Market opportunities: gaps, growth areas and expansion potential

Ground your answers in the market reports and search results provided in the conversation, cite specific metrics where you have them, and say so when the available data does not support a claim.`

// Reply is a chat answer plus what retrieval contributed to it.
type Reply struct {
	Response     string       `json:"response" yaml:"response"`
	Augmentation Augmentation `json:"augmentation" yaml:"augmentation"`
}

// Chat answers free-form analyst questions with retrieval augmentation.
type Chat struct {
	engine *Engine
}

// NewChat returns a chat responder over engine.
func NewChat(engine *Engine) *Chat {
	return &Chat{engine: engine}
}

// Reply validates conv, prepends the analyst prompt, augments it and returns
// the generated answer.
func (c *Chat) Reply(ctx context.Context, conv types.Conversation) (Reply, error) {
	if err := conv.Validate(); err != nil {
		return Reply{}, err
	}

	full := append(types.Conversation{types.System(AnalystPrompt)}, conv...)
	augmented, aug, err := c.engine.Augment(ctx, full)
	if err != nil {
		return Reply{}, err
	}

	text, err := c.engine.client.Complete(ctx, augmented)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Response: text, Augmentation: aug}, nil
}
