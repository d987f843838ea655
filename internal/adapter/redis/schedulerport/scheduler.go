package schedulerport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
)

const (
	fieldHost = "host"
	fieldPort = "port"
)

var _ secondary.SchedulerRepository = (*SchedulerRepository)(nil)

// SchedulerRepository keeps the scheduler address in a redis hash.
type SchedulerRepository struct {
	redisClient *redis.Client
	key         string
	logger      primary.Logger
}

// NewSchedulerRepository creates a new Redis scheduler repository
func NewSchedulerRepository(redisClient *redis.Client, key string, logger primary.Logger) *SchedulerRepository {
	return &SchedulerRepository{
		redisClient: redisClient,
		key:         key,
		logger:      logger,
	}
}

// Publish saves the scheduler address with expiration
func (r *SchedulerRepository) Publish(ctx context.Context, addr comm.SchedulerAddr, ttl time.Duration) error {
	pipe := r.redisClient.TxPipeline()
	pipe.HSet(ctx, r.key, fieldHost, addr.Host, fieldPort, strconv.Itoa(addr.Port))
	if ttl > 0 {
		pipe.Expire(ctx, r.key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to publish scheduler", "key", r.key, "error", err)
		return fmt.Errorf("failed to publish scheduler: %w", err)
	}
	return nil
}

// Withdraw deletes the scheduler address
func (r *SchedulerRepository) Withdraw(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, r.key).Err(); err != nil {
		r.logger.Error("Failed to withdraw scheduler", "key", r.key, "error", err)
		return fmt.Errorf("failed to withdraw scheduler: %w", err)
	}
	return nil
}

// Locate retrieves the scheduler address from Redis
func (r *SchedulerRepository) Locate(ctx context.Context) (comm.SchedulerAddr, bool, error) {
	fields, err := r.redisClient.HGetAll(ctx, r.key).Result()
	if err != nil {
		if err == redis.Nil {
			return comm.SchedulerAddr{}, false, nil
		}
		r.logger.Error("Failed to get scheduler", "key", r.key, "error", err)
		return comm.SchedulerAddr{}, false, fmt.Errorf("failed to get scheduler: %w", err)
	}

	host := fields[fieldHost]
	if host == "" {
		return comm.SchedulerAddr{}, false, nil
	}

	port, err := strconv.Atoi(fields[fieldPort])
	if err != nil {
		r.logger.Error("Invalid scheduler port", "key", r.key, "port", fields[fieldPort])
		return comm.SchedulerAddr{}, false, fmt.Errorf("invalid scheduler port %q: %w", fields[fieldPort], err)
	}

	return comm.SchedulerAddr{Host: host, Port: port}, true, nil
}
