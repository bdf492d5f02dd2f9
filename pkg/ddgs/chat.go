package ddgs

import (
	"fmt"

	"github.com/FranksOps/ddgs/internal/chat"
)

// ChatSession is a conversation started by NewChat.
type ChatSession = chat.Session

// ChatMessage is one turn of a ChatSession.
type ChatMessage = chat.Message

// ChatModels lists the models NewChat accepts.
func ChatModels() []string {
	models := chat.Models()
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = string(m)
	}
	return out
}

// NewChat starts a conversation with model; empty means gpt-4o-mini. The
// session shares the client's transport and its fail-fast latch.
func (c *Client) NewChat(model string) (*ChatSession, error) {
	s, err := chat.New(c.tr, chat.Config{
		Model:     chat.Model(model),
		StatusURL: c.ep.ChatStatus,
		ChatURL:   c.ep.Chat,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ddgs: %w", err)
	}
	return s, nil
}
