// File: internal/infra/redis/progress.go
package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"ai-coding-tasks/internal/domain"
)

const progressTTL = 24 * time.Hour

// keep only forward movement; concurrent reporters must never make
// the observed percentage go backwards.
var luaSetMax = goredis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur == false or tonumber(ARGV[1]) > tonumber(cur) then
	redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
	return 1
end
return 0`)

// ProgressStore keeps per-task completion percentage in Redis so the
// ops API can read it without touching the database.
type ProgressStore struct {
	cli *goredis.Client
}

func NewProgressStore(c *Client) *ProgressStore {
	return &ProgressStore{cli: c.cli}
}

func progressKey(taskID string) string { return "task_progress:" + taskID }

func (s *ProgressStore) Set(ctx context.Context, taskID string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	ttl := int(progressTTL / time.Second)
	return luaSetMax.Run(ctx, s.cli, []string{progressKey(taskID)}, percent, ttl).Err()
}

func (s *ProgressStore) Get(ctx context.Context, taskID string) (int, error) {
	val, err := s.cli.Get(ctx, progressKey(taskID)).Result()
	if err == goredis.Nil {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func (s *ProgressStore) Clear(ctx context.Context, taskID string) error {
	return s.cli.Del(ctx, progressKey(taskID)).Err()
}
