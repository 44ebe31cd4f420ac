package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/config"
	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
	"github.com/aslamabdika18/Sewa-In/internal/infrastructure/postgres"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/metrics"
)

// BookingService は予約のライフサイクルを管理する
//
// 予約作成は「在庫チェック + 料金計算 + 予約挿入」を1つの
// SERIALIZABLEトランザクションで実行する。アプリケーション内に
// 在庫カウンターのような共有状態は持たない。複数プロセスで動かしても
// 正しさはデータベースの直列化可能性だけで保証される
type BookingService struct {
	txManager    transaction.Manager
	bookingRepo  booking.Repository
	itemRepo     item.Repository
	availability *AvailabilityService
	notifier     Notifier
	metrics      *metrics.Metrics // nil可
	policy       config.BookingConfig
}

// NewBookingService は新しいBookingServiceを作成する
func NewBookingService(
	tm transaction.Manager,
	br booking.Repository,
	ir item.Repository,
	av *AvailabilityService,
	notifier Notifier,
	m *metrics.Metrics,
	policy config.BookingConfig,
) *BookingService {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &BookingService{
		txManager: tm, bookingRepo: br, itemRepo: ir,
		availability: av, notifier: notifier, metrics: m, policy: policy,
	}
}

// BookingItemInput は予約リクエストの商品指定
type BookingItemInput struct {
	ItemID   string
	Quantity int
}

// CreateBookingInput は予約作成の入力
type CreateBookingInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Items     []BookingItemInput
}

// CreateBooking は予約を作成する
//
// 失敗の分類:
//   - バリデーションエラー: トランザクションを開かずに即座に返す
//   - ErrItemNotFound / InsufficientStockError: ロールバックして返す
//   - ErrBookingConflict: 直列化異常。入力は正しいのでリトライで解決しうる
//   - ErrTransactionTimeout: 競合による長時間ブロックの打ち切り
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	lines, err := s.validateInput(input)
	if err != nil {
		s.recordBooking("invalid")
		return nil, err
	}

	b := booking.NewBooking(input.UserID, input.StartDate, input.EndDate, lines)

	// 競合時に無期限にブロックしないよう、トランザクション全体に上限を課す
	txCtx, cancel := context.WithTimeout(ctx, s.policy.TxTimeout)
	defer cancel()

	txStart := time.Now()
	created, err := s.createInTx(txCtx, b)
	if s.metrics != nil {
		s.metrics.BookingTxDuration.Observe(time.Since(txStart).Seconds())
	}
	if err != nil {
		translated := s.translateTxError(txCtx, err)
		s.recordBooking(bookingResultLabel(translated))
		return nil, translated
	}

	s.recordBooking("created")
	s.trackTransition("", booking.StatusPending)
	logger.Info("予約を作成",
		zap.String("booking_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.Int("total_price", created.TotalPrice),
		zap.Int("items", len(created.Lines)),
	)

	// コミット後の後処理。失敗しても予約は成立している
	s.afterCommit(created)

	return created, nil
}

// createInTx はSERIALIZABLEトランザクション内で在庫チェック・料金計算・
// 挿入を行う。途中でエラーになった場合はロールバックにより
// 予約も明細も一切残らない
func (s *BookingService) createInTx(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	tx, err := s.txManager.BeginSerializable(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// 全商品の在庫チェック。最初の失敗で全体を中断する（部分予約はしない）
	durationDays := b.DurationDays()
	totalPrice := 0
	for _, line := range b.Lines {
		it, err := s.availability.CheckItemTx(ctx, tx, line.ItemID, b.StartDate, b.EndDate, line.Quantity)
		if err != nil {
			return nil, err
		}
		totalPrice += it.PricePerDay * line.Quantity * durationDays
	}
	b.TotalPrice = totalPrice

	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return b, nil
}

func (s *BookingService) validateInput(input CreateBookingInput) ([]*booking.Line, error) {
	if input.UserID == "" {
		return nil, booking.ErrUserIDRequired
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, booking.ErrInvalidDateRange
	}
	if !input.StartDate.After(time.Now()) {
		return nil, booking.ErrStartDateInPast
	}
	if len(input.Items) == 0 {
		return nil, booking.ErrItemsRequired
	}

	days := (&booking.Booking{StartDate: input.StartDate, EndDate: input.EndDate}).DurationDays()
	if days < s.policy.MinDurationDays {
		return nil, booking.ErrDurationTooShort
	}
	if s.policy.MaxDurationDays > 0 && days > s.policy.MaxDurationDays {
		return nil, booking.ErrDurationTooLong
	}

	lines := make([]*booking.Line, len(input.Items))
	for i, in := range input.Items {
		if in.Quantity < 1 {
			return nil, booking.ErrInvalidQuantity
		}
		lines[i] = &booking.Line{ItemID: in.ItemID, Quantity: in.Quantity}
	}
	return lines, nil
}

// translateTxError はストア層のエラーを呼び出し側向けの分類に変換する
// 生のデータベースエラーコードをこの層より外へ漏らさない
func (s *BookingService) translateTxError(ctx context.Context, err error) error {
	switch {
	case postgres.IsSerializationFailure(err):
		return booking.ErrBookingConflict
	case errors.Is(err, context.DeadlineExceeded),
		postgres.IsQueryCanceled(err),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return booking.ErrTransactionTimeout
	}
	return err
}

func bookingResultLabel(err error) string {
	switch {
	case item.IsInsufficientStock(err):
		return "insufficient_stock"
	case errors.Is(err, item.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, booking.ErrBookingConflict):
		return "conflict"
	case errors.Is(err, booking.ErrTransactionTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func (s *BookingService) recordBooking(result string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(result).Inc()
	}
}

// trackTransition はアクティブ予約数ゲージを状態遷移に追随させる
func (s *BookingService) trackTransition(from, to booking.Status) {
	if s.metrics == nil {
		return
	}
	if from.IsActive() {
		s.metrics.ActiveBookings.WithLabelValues(string(from)).Dec()
	}
	if to.IsActive() {
		s.metrics.ActiveBookings.WithLabelValues(string(to)).Inc()
	}
}

// afterCommit はコミット成功後の副作用を非同期に実行する
// 通知の失敗やキャッシュ無効化の失敗が予約を巻き戻すことはない
func (s *BookingService) afterCommit(b *booking.Booking) {
	itemIDs := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		itemIDs[i] = line.ItemID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.availability.InvalidateCache(ctx, itemIDs)
		s.notifier.BookingCreated(ctx, b)
	}()
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetUserBookings はユーザーの予約一覧を取得する
func (s *BookingService) GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.bookingRepo.GetByUserID(ctx, userID, limit, offset)
}

// CancelBooking は予約をキャンセルする（ソフトデリート）
// pending / paid 以外からのキャンセルは ErrInvalidTransition
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := b.Status
	if err := b.Cancel(); err != nil {
		return nil, err
	}
	if err := s.updateInTx(ctx, b, prev); err != nil {
		return nil, err
	}
	s.trackTransition(prev, b.Status)

	// キャンセルで在庫が解放されるのでキャッシュを無効化
	itemIDs := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		itemIDs[i] = line.ItemID
	}
	s.availability.InvalidateCache(ctx, itemIDs)

	logger.Info("予約をキャンセル", zap.String("booking_id", b.ID))
	return b, nil
}

// StartBooking は貸出開始を記録する（paid -> ongoing）
func (s *BookingService) StartBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Start(); err != nil {
		return nil, err
	}
	if err := s.updateInTx(ctx, b, booking.StatusPaid); err != nil {
		return nil, err
	}
	s.trackTransition(booking.StatusPaid, b.Status)
	return b, nil
}

// FinishBooking は返却完了を記録する（ongoing -> finished）
func (s *BookingService) FinishBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Finish(); err != nil {
		return nil, err
	}
	if err := s.updateInTx(ctx, b, booking.StatusOngoing); err != nil {
		return nil, err
	}
	s.trackTransition(booking.StatusOngoing, b.Status)

	// finished は在庫を占有しないのでキャッシュを無効化
	itemIDs := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		itemIDs[i] = line.ItemID
	}
	s.availability.InvalidateCache(ctx, itemIDs)

	return b, nil
}

func (s *BookingService) updateInTx(ctx context.Context, b *booking.Booking, from booking.Status) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()
	if err := s.bookingRepo.Update(ctx, tx, b, from); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// CancelExpiredBookings は支払い期限を過ぎた保留中予約をキャンセルする
// バックグラウンドワーカーから定期的に呼ばれる
func (s *BookingService) CancelExpiredBookings(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	expired, err := s.bookingRepo.GetExpiredPending(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range expired {
		if err := b.Cancel(); err != nil {
			continue
		}
		if err := s.updateInTx(ctx, b, booking.StatusPending); err != nil {
			logger.Error("期限切れ予約のキャンセルに失敗",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		itemIDs := make([]string, len(b.Lines))
		for i, line := range b.Lines {
			itemIDs[i] = line.ItemID
		}
		s.availability.InvalidateCache(ctx, itemIDs)
		s.trackTransition(booking.StatusPending, b.Status)
		count++
	}
	return count, nil
}

// PurgeDeletedBookings は保持期間を過ぎたソフトデリート済み予約を物理削除する
func (s *BookingService) PurgeDeletedBookings(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.bookingRepo.PurgeDeletedBefore(ctx, time.Now().Add(-retention))
}
