package bot

import (
	"time"

	"github.com/dkeye/Mall/internal/domain"
)

// Conversation is the bot history of one room. The persona turn is kept
// apart from Turns so the sliding window never evicts it.
type Conversation struct {
	Persona   domain.Turn   `json:"persona"`
	Turns     []domain.Turn `json:"turns"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func NewConversation(persona string, now time.Time) *Conversation {
	return &Conversation{
		Persona:   domain.Turn{Role: domain.RoleSystem, Content: persona},
		Turns:     make([]domain.Turn, 0, 4),
		UpdatedAt: now,
	}
}

// Append adds a turn and keeps only the most recent limit turns.
// A non-positive limit disables the window.
func (c *Conversation) Append(t domain.Turn, limit int) {
	c.Turns = append(c.Turns, t)
	if limit > 0 && len(c.Turns) > limit {
		drop := len(c.Turns) - limit
		kept := make([]domain.Turn, limit)
		copy(kept, c.Turns[drop:])
		c.Turns = kept
	}
}

// Messages is what gets sent to the completion backend: persona first,
// then the windowed history in order.
func (c *Conversation) Messages() []domain.Turn {
	out := make([]domain.Turn, 0, len(c.Turns)+1)
	out = append(out, c.Persona)
	return append(out, c.Turns...)
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Turns = append([]domain.Turn(nil), c.Turns...)
	return &cp
}
