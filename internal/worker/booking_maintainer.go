package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
)

// BookingMaintainer は予約の定期保守処理のインターフェース
type BookingMaintainer interface {
	// CancelExpiredBookings は支払い期限切れの保留中予約をキャンセルする
	CancelExpiredBookings(ctx context.Context, olderThan time.Duration) (int, error)

	// PurgeDeletedBookings は保持期間を過ぎたソフトデリート済み予約を物理削除する
	PurgeDeletedBookings(ctx context.Context, retention time.Duration) (int, error)
}

// BookingJanitor は予約の保守を定期実行するワーカー
// 支払い期限切れの自動キャンセルと、削除済みデータの物理削除を担う
type BookingJanitor struct {
	bookingService BookingMaintainer
	interval       time.Duration
	paymentExpiry  time.Duration
	retentionAge   time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewBookingJanitor は新しいジャニターを作成
// paymentExpiry が 0 なら期限切れキャンセルを、
// retentionAge が 0 なら物理削除をスキップする
func NewBookingJanitor(
	bs BookingMaintainer,
	interval time.Duration,
	paymentExpiry time.Duration,
	retentionAge time.Duration,
) *BookingJanitor {
	return &BookingJanitor{
		bookingService: bs,
		interval:       interval,
		paymentExpiry:  paymentExpiry,
		retentionAge:   retentionAge,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はジャニターを開始
func (j *BookingJanitor) Start(ctx context.Context) {
	logger.Info("予約ジャニター開始",
		zap.Duration("interval", j.interval),
		zap.Duration("payment_expiry", j.paymentExpiry),
		zap.Duration("retention_age", j.retentionAge),
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer close(j.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("予約ジャニター停止（コンテキストキャンセル）")
			return
		case <-j.stopCh:
			logger.Info("予約ジャニター停止（シグナル受信）")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// Stop はジャニターを停止
func (j *BookingJanitor) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

// sweep は期限切れキャンセルと物理削除を1サイクル実行する
func (j *BookingJanitor) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("予約保守サイクル開始")

	if j.paymentExpiry > 0 {
		count, err := j.bookingService.CancelExpiredBookings(ctx, j.paymentExpiry)
		if err != nil {
			log.Error("期限切れ予約のキャンセル失敗", zap.Error(err))
		} else if count > 0 {
			log.Info("期限切れ予約をキャンセル", zap.Int("count", count))
		}
	}

	if j.retentionAge > 0 {
		count, err := j.bookingService.PurgeDeletedBookings(ctx, j.retentionAge)
		if err != nil {
			log.Error("削除済み予約の物理削除失敗", zap.Error(err))
		} else if count > 0 {
			log.Info("削除済み予約を物理削除", zap.Int("count", count))
		}
	}
}
