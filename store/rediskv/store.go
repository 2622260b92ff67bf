// Package rediskv is the distributed blob store: it persists
// kernel-encoded graph bytes under a key and fans out update/invalidate
// notices over Redis pub/sub, so that multiple processes sharing one
// Redis instance observe each other's writes (SPEC_FULL.md §2's
// "distributed" example).
package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

const (
	fieldData    = "data"
	fieldVersion = "version"

	defaultChannelPrefix = "graphwire::"
)

// MessageType identifies the kind of pub/sub notice a Store emits.
type MessageType string

const (
	// MessageTypeUpdate indicates a graph's bytes changed.
	MessageTypeUpdate MessageType = "update"
	// MessageTypeInvalidate indicates a graph was removed.
	MessageTypeInvalidate MessageType = "invalidate"
)

// Message is an update/invalidation notice delivered to a Subscription.
type Message struct {
	Key     string
	Type    MessageType
	Version int64
}

// ErrNotFound indicates the key has no stored blob.
var ErrNotFound = errors.New("rediskv: not found")

// Blob is one kernel-encoded graph's bytes plus the monotonic version a
// writer stamps on every Set, so subscribers can tell a stale notice from
// a fresh one.
type Blob struct {
	Data    []byte
	Version int64
}

// Subscription streams Messages for one key until Close.
type Subscription interface {
	Channel() <-chan Message
	Close() error
}

// Option configures a Store.
type Option func(*config)

type config struct {
	channelPrefix string
}

// WithChannelPrefix overrides the pub/sub channel prefix (default
// "graphwire::").
func WithChannelPrefix(prefix string) Option {
	return func(cfg *config) { cfg.channelPrefix = prefix }
}

// Store is a Redis-backed blob store and pub/sub fan-out for
// kernel-encoded graph bytes.
type Store struct {
	client        redis.UniversalClient
	channelPrefix string
}

// New wraps an existing redis client.
func New(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("rediskv: client is nil")
	}
	cfg := config{channelPrefix: defaultChannelPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{client: client, channelPrefix: cfg.channelPrefix}, nil
}

// NewWithOptions builds a redis client from options and wraps it.
func NewWithOptions(options *redis.Options, opts ...Option) (*Store, error) {
	if options == nil {
		return nil, errors.New("rediskv: redis options are required")
	}
	return New(redis.NewClient(options), opts...)
}

// Set stores blob under key.
func (s *Store) Set(ctx context.Context, key string, blob Blob) error {
	fields := map[string]any{
		fieldData:    blob.Data,
		fieldVersion: strconv.FormatInt(blob.Version, 10),
	}
	return s.client.HSet(ctx, key, fields).Err()
}

// Get retrieves the blob stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (Blob, error) {
	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Blob{}, err
	}
	if len(result) == 0 {
		return Blob{}, ErrNotFound
	}

	var blob Blob
	if data, ok := result[fieldData]; ok {
		blob.Data = []byte(data)
	}
	if versionStr, ok := result[fieldVersion]; ok {
		if version, err := strconv.ParseInt(versionStr, 10, 64); err == nil {
			blob.Version = version
		}
	}
	return blob, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Publish announces an update/invalidation on key's channel.
func (s *Store) Publish(ctx context.Context, key string, msg Message) error {
	payload, err := json.Marshal(wireMessage{Key: msg.Key, Type: string(msg.Type), Version: msg.Version})
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channelName(key), payload).Err()
}

// Subscribe listens for Messages on key's channel until the returned
// Subscription is closed.
func (s *Store) Subscribe(ctx context.Context, key string) (Subscription, error) {
	channel := s.channelName(key)
	pubsub := s.client.Subscribe(ctx, channel)

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		pubsub: pubsub,
		ch:     make(chan Message),
		cancel: cancel,
	}
	go sub.forward(subCtx)
	return sub, nil
}

func (s *Store) channelName(key string) string {
	if strings.Contains(key, " ") {
		key = strings.ReplaceAll(key, " ", "_")
	}
	return fmt.Sprintf("%s%s", s.channelPrefix, key)
}

// Client exposes the underlying redis client for health checks or direct
// use.
func (s *Store) Client() redis.UniversalClient {
	return s.client
}

type wireMessage struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Version int64  `json:"version"`
}

type subscription struct {
	pubsub *redis.PubSub
	ch     chan Message

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) Channel() <-chan Message { return s.ch }

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		close(s.ch)
	})
	return err
}

func (s *subscription) forward(ctx context.Context) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wire wireMessage
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				continue
			}
			s.ch <- Message{Key: wire.Key, Type: MessageType(wire.Type), Version: wire.Version}
		}
	}
}
