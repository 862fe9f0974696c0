package bot

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Repository persists conversations by room. Load returns nil, nil when the
// room has no history.
type Repository interface {
	Load(ctx context.Context, room domain.RoomID) (*Conversation, error)
	Save(ctx context.Context, room domain.RoomID, conv *Conversation) error
	Delete(ctx context.Context, room domain.RoomID) error
	Close() error
}

type MemoryRepository struct {
	mu    sync.RWMutex
	convs map[domain.RoomID]*Conversation
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{convs: make(map[domain.RoomID]*Conversation)}
}

func (r *MemoryRepository) Load(_ context.Context, room domain.RoomID) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[room]
	if !ok {
		return nil, nil
	}
	return conv.clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, room domain.RoomID, conv *Conversation) error {
	r.mu.Lock()
	r.convs[room] = conv.clone()
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, room domain.RoomID) error {
	r.mu.Lock()
	delete(r.convs, room)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs)
}

// Reap drops conversations not updated within ttl and returns how many
// were removed.
func (r *MemoryRepository) Reap(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for room, conv := range r.convs {
		if now.Sub(conv.UpdatedAt) > ttl {
			delete(r.convs, room)
			n++
		}
	}
	return n
}

// RunJanitor reaps idle conversations every interval until ctx is done.
func (r *MemoryRepository) RunJanitor(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 || ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := r.Reap(now, ttl); n > 0 {
				log.Debug().Str("module", "bot.repo").Int("reaped", n).Msg("idle conversations dropped")
			}
		}
	}
}
