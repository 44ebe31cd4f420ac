package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
	redisinfra "github.com/aslamabdika18/Sewa-In/internal/infrastructure/redis"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
)

// availabilityCacheTTL は見積もりキャッシュの有効期間
// 古い値を返しても超過販売には繋がらないため短めで十分
const availabilityCacheTTL = 30 * time.Second

// AvailabilityService は商品×期間の空き状況を計算する
//
// Estimate はプールされた接続で読むだけの見積もり用で、並行リクエストに
// 対して安全ではない。予約作成時は必ず CheckItemTx をコーディネーターの
// SERIALIZABLEトランザクション内から呼ぶこと
type AvailabilityService struct {
	itemRepo    item.Repository
	bookingRepo booking.Repository
	cache       *redisinfra.AvailabilityCache // nil可
}

// NewAvailabilityService は新しいAvailabilityServiceを作成する
func NewAvailabilityService(ir item.Repository, br booking.Repository, cache *redisinfra.AvailabilityCache) *AvailabilityService {
	return &AvailabilityService{itemRepo: ir, bookingRepo: br, cache: cache}
}

// Estimate は指定期間の空き状況を見積もる（ドライラン）
func (s *AvailabilityService) Estimate(ctx context.Context, itemID string, start, end time.Time) (*item.Availability, error) {
	if !start.Before(end) {
		return nil, booking.ErrInvalidDateRange
	}

	it, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// キャッシュヒットならDBの集計を省略
	if s.cache != nil {
		if available, err := s.cache.GetAvailable(ctx, itemID, start, end); err == nil {
			return &item.Availability{
				ItemID: itemID, Stock: it.Stock,
				Reserved: it.Stock - available, Available: available,
			}, nil
		} else if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("空き状況キャッシュの取得に失敗", zap.Error(err))
		}
	}

	reserved, err := s.bookingRepo.OverlappingQuantity(ctx, itemID, start, end)
	if err != nil {
		return nil, fmt.Errorf("空き状況の計算に失敗: %w", err)
	}
	available := it.Stock - reserved

	if s.cache != nil {
		if err := s.cache.SetAvailable(ctx, itemID, start, end, available, availabilityCacheTTL); err != nil {
			logger.Warn("空き状況キャッシュの保存に失敗", zap.Error(err))
		}
	}

	return &item.Availability{
		ItemID: itemID, Stock: it.Stock,
		Reserved: reserved, Available: available,
	}, nil
}

// CheckItemTx はトランザクション内で在庫チェックを行い、商品を返す
//
//  1. 商品をロード（存在しなければ ErrItemNotFound）
//  2. 要求数量が総在庫を超えていれば即失敗（日付の計算は不要）
//  3. 期間と重なるアクティブ予約の数量を集計
//  4. 残り数量が足りなければ InsufficientStockError
//
// SERIALIZABLEトランザクションから呼ばれることで、ここで読んだ空き数量と
// 後続の予約挿入が並行トランザクションと直列化される
func (s *AvailabilityService) CheckItemTx(ctx context.Context, tx transaction.Tx, itemID string, start, end time.Time, quantity int) (*item.Item, error) {
	it, err := s.itemRepo.GetByIDTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	if quantity > it.Stock {
		return nil, &item.InsufficientStockError{
			ItemID: itemID, Available: it.Stock, Requested: quantity,
		}
	}

	reserved, err := s.bookingRepo.OverlappingQuantityTx(ctx, tx, itemID, start, end)
	if err != nil {
		return nil, err
	}

	available := it.Stock - reserved
	if quantity > available {
		return nil, &item.InsufficientStockError{
			ItemID: itemID, Available: available, Requested: quantity,
		}
	}

	return it, nil
}

// InvalidateCache は商品の空き状況キャッシュを無効化する
// 予約の作成・キャンセルなど空き数量が変わる操作の後に呼ぶ
func (s *AvailabilityService) InvalidateCache(ctx context.Context, itemIDs []string) {
	if s.cache == nil {
		return
	}
	for _, id := range itemIDs {
		if err := s.cache.InvalidateItem(ctx, id); err != nil {
			logger.Warn("空き状況キャッシュの無効化に失敗",
				zap.String("item_id", id), zap.Error(err))
		}
	}
}
