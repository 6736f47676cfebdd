package prompts

import (
	"context"
	"strings"
)

// Role identifies the author of a chat message
type Role string

// Chat roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", NewInvalidRoleError(s)
	}
}

// Message is one chat turn. Content is template text until formatted.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Chat is a conversation whose messages are prompt templates.
// Tools and Documents are carried along for the caller and never rendered.
type Chat struct {
	System    string
	Tools     []any
	Documents []any

	history []Message
}

// NewChat creates a chat with an optional system message
func NewChat(system string) *Chat {
	return &Chat{System: system}
}

// Append adds messages to the history
func (c *Chat) Append(msgs ...Message) error {
	for _, m := range msgs {
		if _, err := ParseRole(string(m.Role)); err != nil {
			return err
		}
	}
	c.history = append(c.history, msgs...)
	return nil
}

// Extend appends the history of other
func (c *Chat) Extend(other *Chat) {
	if other == nil {
		return
	}
	c.history = append(c.history, other.history...)
}

// Messages returns a copy of the history
func (c *Chat) Messages() []Message {
	msgs := make([]Message, len(c.history))
	copy(msgs, c.history)
	return msgs
}

// Len returns the number of messages in the history
func (c *Chat) Len() int {
	return len(c.history)
}

// Format renders the system message and then every history message with
// the default renderer. An empty system message is skipped.
func (c *Chat) Format(ctx context.Context, model string, values map[string]any) ([]Message, error) {
	return c.FormatWith(ctx, defaultRenderer, model, values)
}

// FormatWith is Format with an explicit renderer
func (c *Chat) FormatWith(ctx context.Context, r *Renderer, model string, values map[string]any) ([]Message, error) {
	out := make([]Message, 0, len(c.history)+1)

	if strings.TrimSpace(c.System) != "" {
		content, err := r.Render(ctx, c.System, model, values)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{Role: RoleSystem, Content: content})
	}

	for _, m := range c.history {
		content, err := r.Render(ctx, m.Content, model, values)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{Role: m.Role, Content: content})
	}
	return out, nil
}

// Prompt formats the chat and joins it into one string framed by the
// model's special tokens. Each message is wrapped in its role markers; a
// model without role markers gets the contents separated by a blank line.
func (c *Chat) Prompt(ctx context.Context, model string, values map[string]any) (string, error) {
	return c.PromptWith(ctx, defaultRenderer, model, values)
}

// PromptWith is Prompt with an explicit renderer
func (c *Chat) PromptWith(ctx context.Context, r *Renderer, model string, values map[string]any) (string, error) {
	msgs, err := c.FormatWith(ctx, r, model, values)
	if err != nil {
		return "", err
	}

	tokens, _ := r.tokens.Lookup(model)

	var sb strings.Builder
	sb.WriteString(tokens.Sequence.Begin)
	if !tokens.HasRoleMarkers() {
		for i, m := range msgs {
			if i > 0 {
				sb.WriteString(ChatMessageSeparator)
			}
			sb.WriteString(m.Content)
		}
		return sb.String(), nil
	}

	for _, m := range msgs {
		limits := tokens.Role(m.Role)
		sb.WriteString(limits.Begin)
		sb.WriteString(m.Content)
		sb.WriteString(limits.End)
	}
	return sb.String(), nil
}
