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

// AvailabilityCache は商品×期間ごとの空き数量キャッシュを管理する
// 空き状況の見積もり（ドライラン）専用。予約作成の正しさは
// データベースのSERIALIZABLEトランザクションが保証するため、
// キャッシュの値が古くても在庫の超過販売は起きない
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailable は商品×期間の空き数量をキャッシュから取得する
func (c *AvailabilityCache) GetAvailable(ctx context.Context, itemID string, start, end time.Time) (int, error) {
	key := c.availabilityKey(itemID, start, end)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailable は商品×期間の空き数量をキャッシュに保存する
func (c *AvailabilityCache) SetAvailable(ctx context.Context, itemID string, start, end time.Time, available int, ttl time.Duration) error {
	key := c.availabilityKey(itemID, start, end)
	if err := c.client.Set(ctx, key, available, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// InvalidateItem は商品に紐づく全期間のキャッシュを無効化する
// 予約の作成・キャンセルで空き数量が変わったときに呼ぶ
func (c *AvailabilityCache) InvalidateItem(ctx context.Context, itemID string) error {
	pattern := fmt.Sprintf("availability:%s:*", itemID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availabilityKey(itemID string, start, end time.Time) string {
	return fmt.Sprintf("availability:%s:%s:%s",
		itemID, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
