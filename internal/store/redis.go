package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SigMarks 管理 Redis 中已处理交易签名的标记（幂等快路径）。
// Redis 只是加速层：标记缺失时重放同一笔交易，由 DB 的签名主键兜底去重。
type SigMarks struct {
	rdb *redis.Client
}

const (
	sigPrefix = "indexer:sig"
	sigTTL    = 7 * 24 * time.Hour
)

func NewSigMarks(rdb *redis.Client) *SigMarks {
	return &SigMarks{rdb: rdb}
}

func (s *SigMarks) key(signature string) string {
	return fmt.Sprintf("%s:%s", sigPrefix, signature)
}

// IsProcessed 查询签名是否已处理过
func (s *SigMarks) IsProcessed(ctx context.Context, signature string) (bool, error) {
	_, err := s.rdb.Get(ctx, s.key(signature)).Result()
	switch {
	case err == redis.Nil:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("redis get error: %w", err)
	default:
		return true, nil
	}
}

// MarkProcessed 标记签名已处理（带 TTL）
func (s *SigMarks) MarkProcessed(ctx context.Context, signature string) error {
	return s.rdb.Set(ctx, s.key(signature), 1, sigTTL).Err()
}
