//go:build integration

package integration_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// Environment variable names for integration test configuration.
const (
	EnvRedisAddr     = "INTEGRATION_REDIS_ADDR"
	EnvRedisPassword = "INTEGRATION_REDIS_PASSWORD"
	EnvRedisDB       = "INTEGRATION_REDIS_DB"
)

// Default configuration values.
const (
	DefaultRedisAddr = "localhost:6379"
	DefaultTimeout   = 10 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// redisDB returns the Redis database index used by the tests.
func redisDB() int {
	db, err := strconv.Atoi(getEnvOrDefault(EnvRedisDB, "0"))
	if err != nil {
		return 0
	}
	return db
}

// newRedisClient connects to the Redis instance under test and skips
// the test when it is not reachable.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault(EnvRedisAddr, DefaultRedisAddr)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv(EnvRedisPassword),
		DB:       redisDB(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis unavailable at %s: %v", addr, err)
	}

	return client
}

// deleteNamespace removes every key written under a cache namespace.
func deleteNamespace(t *testing.T, client *redis.Client, namespace string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	keys, err := client.Keys(ctx, "items:"+namespace+":*").Result()
	if err != nil {
		t.Logf("Listing keys for cleanup: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		t.Logf("Deleting keys for cleanup: %v", err)
	}
}
