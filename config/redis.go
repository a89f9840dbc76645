package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/HSouheill/alumni_backend/utils"
)

// ConnectRedis establishes connection to Redis. A nil client means Redis is
// unavailable and callers should fall back to the mongo-backed limiter.
func ConnectRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		utils.Logger.Warnf("Redis connection failed: %v", err)
		utils.Logger.Warn("OTP issuance limits will be tracked in MongoDB")
		_ = client.Close()
		return nil
	}

	utils.Logger.Info("Connected to Redis")
	return client
}
