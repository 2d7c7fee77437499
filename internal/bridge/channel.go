package bridge

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the cross-context broadcast primitive. Publishing echoes back
// to every subscriber on the origin, the publisher included.
type Channel interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}

// RedisChannel carries broadcast frames over a Redis pub/sub channel.
type RedisChannel struct {
	client *redis.Client
	name   string
}

func NewRedisChannel(addr, password string, dbIndex int, name string) *RedisChannel {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	return &RedisChannel{client: client, name: name}
}

func (c *RedisChannel) Publish(ctx context.Context, payload []byte) error {
	return c.client.Publish(ctx, c.name, payload).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	pubsub := c.client.Subscribe(ctx, c.name)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}
	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()
	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryChannel is an in-process loopback with the same echo semantics,
// used in tests and by the capability detector's echo probe.
type MemoryChannel struct {
	mu     sync.Mutex
	subs   map[int]chan []byte
	nextID int
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[int]chan []byte)}
}

func (c *MemoryChannel) Publish(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	targets := make([]chan []byte, 0, len(c.subs))
	for _, sub := range c.subs {
		targets = append(targets, sub)
	}
	c.mu.Unlock()
	copied := make([]byte, len(payload))
	copy(copied, payload)
	for _, target := range targets {
		select {
		case target <- copied:
		default:
		}
	}
	return nil
}

func (c *MemoryChannel) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	sub := make(chan []byte, 32)
	c.subs[id] = sub
	c.mu.Unlock()
	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return sub, cancel, nil
}
