package telegram

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// NotifyChatsKey is the Redis set holding opted-in chat ids.
const NotifyChatsKey = "complaints:notify_chats"

// ChatStore keeps the set of chats that receive notifications.
type ChatStore interface {
	AddChat(ctx context.Context, chatID int64) error
	RemoveChat(ctx context.Context, chatID int64) error
	Chats(ctx context.Context) ([]int64, error)
}

// MemoryChats is a process-local ChatStore.
type MemoryChats struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewMemoryChats() *MemoryChats {
	return &MemoryChats{ids: make(map[int64]struct{})}
}

func (m *MemoryChats) AddChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[chatID] = struct{}{}
	return nil
}

func (m *MemoryChats) RemoveChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, chatID)
	return nil
}

func (m *MemoryChats) Chats(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// RedisChats shares the chat set between server instances.
type RedisChats struct {
	Client *redis.Client
}

func (r *RedisChats) AddChat(ctx context.Context, chatID int64) error {
	return r.Client.SAdd(ctx, NotifyChatsKey, strconv.FormatInt(chatID, 10)).Err()
}

func (r *RedisChats) RemoveChat(ctx context.Context, chatID int64) error {
	return r.Client.SRem(ctx, NotifyChatsKey, strconv.FormatInt(chatID, 10)).Err()
}

func (r *RedisChats) Chats(ctx context.Context) ([]int64, error) {
	members, err := r.Client.SMembers(ctx, NotifyChatsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue // сміття в наборі ігноруємо
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
