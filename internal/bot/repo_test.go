package bot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dkeye/Mall/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendWindow(t *testing.T) {
	conv := NewConversation("p", time.Now())
	for i := 0; i < 7; i++ {
		conv.Append(domain.Turn{Role: domain.RoleUser, Content: string(rune('a' + i))}, 3)
	}
	require.Len(t, conv.Turns, 3)
	assert.Equal(t, "e", conv.Turns[0].Content)
	assert.Equal(t, "g", conv.Turns[2].Content)

	msgs := conv.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
}

func TestMemoryRepositoryIsolatesCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	conv, err := repo.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, conv)

	conv = NewConversation("p", time.Now())
	conv.Append(domain.Turn{Role: domain.RoleUser, Content: "x"}, 0)
	require.NoError(t, repo.Save(ctx, "r1", conv))

	conv.Turns[0].Content = "mutated"
	loaded, err := repo.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "x", loaded.Turns[0].Content)
}

func TestMemoryRepositoryReap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Save(ctx, "old", NewConversation("p", now.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(ctx, "fresh", NewConversation("p", now.Add(-time.Minute))))

	assert.Equal(t, 1, repo.Reap(now, time.Hour))
	assert.Equal(t, 1, repo.Len())

	conv, _ := repo.Load(ctx, "fresh")
	assert.NotNil(t, conv)
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), "old", NewConversation("p", time.Now().Add(-time.Hour))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.RunJanitor(ctx, 5*time.Millisecond, time.Minute) }()

	require.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRedisRepositoryKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	repo := NewRedisRepositoryWithClient(client, "", time.Hour)
	assert.Equal(t, "mall:conversation:lobby", repo.key("lobby"))

	repo = NewRedisRepositoryWithClient(client, "test", time.Hour)
	assert.Equal(t, "test:lobby", repo.key("lobby"))
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	repo := NewRedisRepositoryWithClient(client, "mall:test", time.Minute)
	defer repo.Close()
	ctx := context.Background()

	room := domain.RoomID("roundtrip-" + time.Now().Format("150405.000"))
	conv := NewConversation("p", time.Now())
	conv.Append(domain.Turn{Role: domain.RoleUser, Content: "hi"}, 20)
	require.NoError(t, repo.Save(ctx, room, conv))

	loaded, err := repo.Load(ctx, room)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, conv.Turns, loaded.Turns)

	ttl, err := client.TTL(ctx, repo.key(room)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, repo.Delete(ctx, room))
	loaded, err = repo.Load(ctx, room)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
