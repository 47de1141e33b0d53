package source

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"codeberg.org/mutker/roadwatch/internal/errors"
	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// RedisConfig configures the Redis sample source.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key is the list the telemetry producer pushes JSON samples to.
	Key          string
	BlockTimeout time.Duration
}

const defaultBlockTimeout = time.Second

// RedisSource pops JSON-encoded samples from a Redis list. One source per
// detector stream; producers push with RPUSH.
type RedisSource struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
}

// wireSample is the JSON shape producers push.
type wireSample struct {
	DetectorID string             `json:"detector_id"`
	Timestamp  int64              `json:"timestamp"`
	Values     map[string]float64 `json:"values"`
	Labels     map[string]string  `json:"labels,omitempty"`
}

// NewRedisSource creates a Redis-backed sample source.
func NewRedisSource(cfg RedisConfig) (*RedisSource, error) {
	errFactory := errors.New()

	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, errFactory.WithMessage(errors.ErrMissingConfig, "redis key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = defaultBlockTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisSource{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
	}, nil
}

// Next pops one sample. Returns nil when the list is empty within the
// block timeout or the payload cannot be decoded (fail soft).
func (s *RedisSource) Next(ctx context.Context) (*monitor.Sample, error) {
	res, err := s.client.BLPop(ctx, s.blockTimeout, s.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}

	var wire wireSample
	if err := json.Unmarshal([]byte(res[1]), &wire); err != nil {
		return nil, nil
	}

	timestamp := time.Unix(wire.Timestamp, 0)
	if wire.Timestamp == 0 {
		timestamp = time.Now()
	}

	return &monitor.Sample{
		DetectorID: wire.DetectorID,
		Timestamp:  timestamp,
		Values:     wire.Values,
		Labels:     wire.Labels,
	}, nil
}

// Close closes the underlying client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
