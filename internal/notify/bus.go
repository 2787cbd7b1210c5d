package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 5 * time.Second

// Publisher mirrors notification payloads to a message bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

// NewPublisher picks NATS or Redis from the URL scheme.
func NewPublisher(rawURL string) (Publisher, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "nats", "tls":
		return NewNATSPublisher(rawURL)
	case "redis", "rediss":
		return NewRedisPublisher(rawURL)
	}
	return nil, fmt.Errorf("unsupported bus url scheme %q (want nats, tls, redis or rediss)", parsed.Scheme)
}

type natsConnection interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

type NATSPublisher struct {
	conn natsConnection
}

func NewNATSPublisher(address string) (*NATSPublisher, error) {
	if address == "" {
		address = nats.DefaultURL
	}
	conn, err := nats.Connect(address, nats.Name("trudger"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p == nil || p.conn == nil {
		return fmt.Errorf("nats publisher is nil")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return p.conn.FlushTimeout(timeout)
}

func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

type RedisPublisher struct {
	client redisClient
}

func NewRedisPublisher(address string) (*RedisPublisher, error) {
	if address == "" {
		address = "redis://127.0.0.1:6379"
	}
	options, err := redis.ParseURL(address)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisPublisher{client: redis.NewClient(options)}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("redis publisher is nil")
	}
	return p.client.Publish(ctx, subject, payload).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
