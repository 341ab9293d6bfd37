package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// OccupancyCache はイベントの占有席数をキャッシュする
type OccupancyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOccupancyCache は新しいOccupancyCacheを作成する
func NewOccupancyCache(client *redis.Client, ttl time.Duration) *OccupancyCache {
	return &OccupancyCache{client: client, ttl: ttl}
}

// GetOccupied はイベントの占有席数をキャッシュから取得する
func (c *OccupancyCache) GetOccupied(ctx context.Context, eventID string) (int, error) {
	val, err := c.client.Get(ctx, c.key(eventID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetOccupied はイベントの占有席数をキャッシュに保存する
func (c *OccupancyCache) SetOccupied(ctx context.Context, eventID string, count int) error {
	if err := c.client.Set(ctx, c.key(eventID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はイベントのキャッシュを無効化する
func (c *OccupancyCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, c.key(eventID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

// IsMiss はキャッシュミスかを返す
func (c *OccupancyCache) IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

func (c *OccupancyCache) key(eventID string) string {
	return fmt.Sprintf("events:occupied:%s", eventID)
}
