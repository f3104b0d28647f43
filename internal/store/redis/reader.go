package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-signals/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const replayPageSize = 1000

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr      string
	Password  string
	DB        int
	BarPrefix string // stream key prefix, default "bar"
}

// Reader reads bars from Redis Streams. Messages are plain XRANGE/XREAD
// reads; every signal process keeps its own cursor, so no consumer group
// is needed.
type Reader struct {
	client *goredis.Client
	prefix string
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.BarPrefix
	if prefix == "" {
		prefix = DefaultBarPrefix
	}

	log.Printf("[redis-reader] connected to %s (prefix=%s)", cfg.Addr, prefix)
	return &Reader{client: client, prefix: prefix}, nil
}

// Prefix returns the bar stream prefix.
func (r *Reader) Prefix() string { return r.prefix }

// DiscoverStreams returns the bar streams that exist for the given
// symbols and timeframes.
func (r *Reader) DiscoverStreams(ctx context.Context, tfs, symbols []string) []string {
	var streams []string
	for _, tf := range tfs {
		for _, sym := range symbols {
			stream := BarStreamKey(r.prefix, tf, sym)
			exists, err := r.client.Exists(ctx, stream).Result()
			if err == nil && exists > 0 {
				streams = append(streams, stream)
			}
		}
	}
	return streams
}

// Replay reads all retained messages of stream in pages and returns the
// last ID seen, which is where Tail should continue.
// Undecodable messages are logged and skipped.
func (r *Reader) Replay(ctx context.Context, stream string, out chan<- model.Bar) (string, error) {
	lastID := "0"
	start := "-"
	for {
		results, err := r.client.XRangeN(ctx, stream, start, "+", replayPageSize).Result()
		if err != nil {
			return lastID, fmt.Errorf("xrange %s from %s: %w", stream, start, err)
		}

		for _, msg := range results {
			lastID = msg.ID
			bar, err := decodeBar(r.prefix, stream, msg.Values)
			if err != nil {
				log.Printf("[redis-reader] skip %s %s: %v", stream, msg.ID, err)
				continue
			}

			select {
			case out <- bar:
			case <-ctx.Done():
				return lastID, ctx.Err()
			}
		}

		if len(results) < replayPageSize {
			return lastID, nil
		}
		start = "(" + lastID
	}
}

// Tail blocks on XREAD for messages after lastIDs and forwards them to out.
// lastIDs is advanced in place. Returns when ctx is cancelled.
func (r *Reader) Tail(ctx context.Context, lastIDs map[string]string, block time.Duration, out chan<- model.Bar) error {
	if len(lastIDs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	streams := make([]string, 0, len(lastIDs))
	for s := range lastIDs {
		streams = append(streams, s)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Build stream args: [stream1, stream2, ..., id1, id2, ...]
		args := make([]string, len(streams)*2)
		for i, s := range streams {
			args[i] = s
			args[len(streams)+i] = lastIDs[s]
		}

		results, err := r.client.XRead(ctx, &goredis.XReadArgs{
			Streams: args,
			Count:   100,
			Block:   block,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[redis-reader] xread error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastIDs[stream.Stream] = msg.ID
				bar, err := decodeBar(r.prefix, stream.Stream, msg.Values)
				if err != nil {
					log.Printf("[redis-reader] skip %s %s: %v", stream.Stream, msg.ID, err)
					continue
				}

				select {
				case out <- bar:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
