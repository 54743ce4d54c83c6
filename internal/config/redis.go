package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the exhibitions cache, the
// login rate limit and, with LOCK_BACKEND=redis, the booking locks.
type RedisConfig struct {
	Addr     string // REDIS_HOST:REDIS_PORT, else REDIS_ADDR
	Password string
	DB       int
	TLS      bool
}

func loadRedis() (RedisConfig, error) {
	rc := RedisConfig{
		Addr:     envStr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		TLS:      envBool("REDIS_TLS", false),
	}
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		rc.Addr = net.JoinHostPort(host, port)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return rc, fmt.Errorf("invalid REDIS_DB %q: want a database number", v)
		}
		rc.DB = n
	}
	return rc, nil
}

// Options converts rc into go-redis client options.
func (rc RedisConfig) Options() *redis.Options {
	opt := &redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	}
	if rc.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}

// NewRedisClient connects to the server in rc and pings it within two
// seconds. Callers treat an error as "run without Redis".
func NewRedisClient(ctx context.Context, rc RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(rc.Options())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
	}
	return client, nil
}
