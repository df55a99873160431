// Package modelredis keeps serialized entity snapshots in Redis
package modelredis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spiral/models"
)

// Snapshot encodings
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Store reads and writes entity snapshots under a key prefix
type Store struct {
	client redis.UniversalClient
	prefix string
	format string
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithPrefix namespaces every key
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithFormat selects the snapshot encoding
func WithFormat(format string) StoreOption {
	return func(s *Store) {
		s.format = format
	}
}

// NewStore wraps an existing client
func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{client: client, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open builds a client from the configuration and pings it. The redis adapter options may
// set dial_timeout, read_timeout, write_timeout, prefix and format.
func Open(ctx context.Context, config models.SourceConfig) (*Store, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Username: config.Username,
		Password: config.Password,
		DB:       0,
	}

	if config.ConnectionURL != "" {
		parsed, err := redis.ParseURL(config.ConnectionURL)
		if err != nil {
			return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "invalid redis url", err)
		}
		opts = parsed
	} else if config.Database != "" {
		if db, err := strconv.Atoi(config.Database); err == nil {
			opts.DB = db
		}
	}

	if config.MaxOpenConns > 0 {
		opts.PoolSize = config.MaxOpenConns
	}
	if config.MaxIdleConns > 0 {
		opts.MinIdleConns = config.MaxIdleConns
	}
	if config.ConnMaxIdleTime > 0 {
		opts.IdleTimeout = config.ConnMaxIdleTime
	}
	if config.ConnMaxLifetime > 0 {
		opts.MaxConnAge = config.ConnMaxLifetime
	}

	var storeOpts []StoreOption
	if redisOpts := config.AdapterOptions("redis"); redisOpts != nil {
		if dialTimeout, ok := redisOpts["dial_timeout"].(time.Duration); ok {
			opts.DialTimeout = dialTimeout
		}
		if readTimeout, ok := redisOpts["read_timeout"].(time.Duration); ok {
			opts.ReadTimeout = readTimeout
		}
		if writeTimeout, ok := redisOpts["write_timeout"].(time.Duration); ok {
			opts.WriteTimeout = writeTimeout
		}
		if prefix, ok := redisOpts["prefix"].(string); ok {
			storeOpts = append(storeOpts, WithPrefix(prefix))
		}
		if format, ok := redisOpts["format"].(string); ok {
			storeOpts = append(storeOpts, WithFormat(format))
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, models.NewErrorWithCause(models.ErrorTypeConnection, "failed to connect to Redis", err)
	}

	return NewStore(client, storeOpts...), nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

// Save stores the packed entity. A zero ttl keeps the key forever.
func (s *Store) Save(ctx context.Context, key string, entity *models.DataEntity, ttl time.Duration) error {
	data, err := s.encode(entity)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return convertRedisError(err, key)
	}
	return nil
}

// Load decodes the snapshot stored under key into entity, keeping its schema
func (s *Store) Load(ctx context.Context, key string, entity *models.DataEntity) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return convertRedisError(err, key)
	}
	return s.decode(data, entity)
}

// LoadMany fetches several snapshots in one round trip. Missing keys leave a nil entry at
// their position.
func (s *Store) LoadMany(ctx context.Context, keys []string, newEntity func() *models.DataEntity) ([]*models.DataEntity, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}

	values, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, convertRedisError(err, "")
	}

	entities := make([]*models.DataEntity, len(keys))
	for i, value := range values {
		if value == nil {
			continue
		}
		str, ok := value.(string)
		if !ok {
			return nil, models.NewError(models.ErrorTypeSerialization, fmt.Sprintf("unexpected reply %T for key %s", value, keys[i]))
		}
		entity := newEntity()
		if err := s.decode([]byte(str), entity); err != nil {
			return nil, err
		}
		entities[i] = entity
	}
	return entities, nil
}

// Delete removes snapshots
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return convertRedisError(err, "")
	}
	return nil
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *Store) encode(entity *models.DataEntity) ([]byte, error) {
	switch s.format {
	case FormatMsgpack:
		return models.MarshalMsgpack(entity)
	case FormatJSON, "":
		return entity.MarshalJSON()
	}
	return nil, models.NewError(models.ErrorTypeUnsupported, fmt.Sprintf("unsupported snapshot format: %s", s.format))
}

func (s *Store) decode(data []byte, entity *models.DataEntity) error {
	switch s.format {
	case FormatMsgpack:
		return models.UnmarshalMsgpack(data, entity)
	case FormatJSON, "":
		return entity.UnmarshalJSON(data)
	}
	return models.NewError(models.ErrorTypeUnsupported, fmt.Sprintf("unsupported snapshot format: %s", s.format))
}

func convertRedisError(err error, key string) error {
	if errors.Is(err, redis.Nil) {
		return models.EntityError{
			Type:    models.ErrorTypeNotFound,
			Message: "snapshot not found",
			Field:   key,
			Cause:   err,
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || errors.Is(err, context.DeadlineExceeded) {
		return models.NewErrorWithCause(models.ErrorTypeConnection, "operation timeout", err)
	}
	return models.NewErrorWithCause(models.ErrorTypeConnection, "redis operation failed", err)
}
