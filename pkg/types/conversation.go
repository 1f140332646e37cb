// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three accepted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// System, User and Assistant build turns with the matching role.
func System(content string) Turn    { return Turn{Role: RoleSystem, Content: content} }
func User(content string) Turn      { return Turn{Role: RoleUser, Content: content} }
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// Conversation is an ordered list of turns submitted to a generative backend.
type Conversation []Turn

// Validate checks the submission rules: at least one turn, every role known,
// and the final turn authored by the user.
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return &ValidationError{Field: "messages", Reason: "conversation is empty"}
	}
	for i, t := range c {
		if !t.Role.Valid() {
			return &ValidationError{
				Field:  fmt.Sprintf("messages[%d].role", i),
				Reason: fmt.Sprintf("role %q must be one of system, user, assistant", t.Role),
			}
		}
	}
	if last := c[len(c)-1]; last.Role != RoleUser {
		return &ValidationError{
			Field:  fmt.Sprintf("messages[%d].role", len(c)-1),
			Reason: "last message must be from the user",
		}
	}
	return nil
}

// Clone returns a copy that can be modified without touching c.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// InsertBeforeLast returns a copy of c with turns inserted ahead of the final
// turn, so the user's question stays last.
func (c Conversation) InsertBeforeLast(turns ...Turn) Conversation {
	if len(c) == 0 {
		return append(Conversation{}, turns...)
	}
	out := make(Conversation, 0, len(c)+len(turns))
	out = append(out, c[:len(c)-1]...)
	out = append(out, turns...)
	return append(out, c[len(c)-1])
}
