package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configura la conexión del RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// Timeout acota cada comando cuando el ctx del caller no trae deadline.
	Timeout time.Duration
}

// RedisOption modifica la configuración por defecto.
type RedisOption func(*RedisConfig)

// WithRedisAddr fija host:port.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

// WithRedisPassword fija la contraseña.
func WithRedisPassword(pw string) RedisOption {
	return func(c *RedisConfig) { c.Password = pw }
}

// WithRedisDB selecciona la base lógica.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

// WithRedisPrefix antepone prefix+":" a cada key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// WithRedisTimeout acota cada comando.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) { c.Timeout = d }
}

// RedisStore implementa ports.SnapshotStore sobre Redis (SET/GET/DEL).
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore conecta y hace PING antes de devolver el store.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Addr:    "localhost:6379",
		Timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage.NewRedisStore: ping %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix, timeout: cfg.Timeout}, nil
}

// Put hace SET sin expiración.
func (r *RedisStore) Put(ctx context.Context, key string, blob []byte) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Set(ctx, r.wrapKey(key), blob, 0).Err(); err != nil {
		return fmt.Errorf("storage.RedisStore.Put %q: %w", key, err)
	}
	return nil
}

// Get hace GET; redis.Nil significa slot vacío.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	blob, err := r.client.Get(ctx, r.wrapKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage.RedisStore.Get %q: %w", key, err)
	}
	return blob, true, nil
}

// Delete hace DEL.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Del(ctx, r.wrapKey(key)).Err(); err != nil {
		return fmt.Errorf("storage.RedisStore.Delete %q: %w", key, err)
	}
	return nil
}

// Close cierra el cliente.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *RedisStore) wrapKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
