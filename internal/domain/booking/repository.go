package booking

import (
	"context"
	"time"

	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は予約と明細行を同一トランザクション内で作成する
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する（ソフトデリート済みは除外）
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)

	// Update は予約のステータスと削除マーカーを更新する（トランザクション必須）
	// from には読み出し時点のステータスを渡す。別の更新が先にコミットして
	// いた場合は書き込まず ErrBookingConflict を返す
	Update(ctx context.Context, tx transaction.Tx, b *Booking, from Status) error

	// OverlappingQuantity は指定期間と重なるアクティブな予約
	// （pending / paid / ongoing）の数量合計を返す
	// 単体では見積もり用。予約作成時は OverlappingQuantityTx を使うこと
	OverlappingQuantity(ctx context.Context, itemID string, start, end time.Time) (int, error)

	// OverlappingQuantityTx はトランザクション内で数量合計を返す
	OverlappingQuantityTx(ctx context.Context, tx transaction.Tx, itemID string, start, end time.Time) (int, error)

	// GetExpiredPending は作成から olderThan 以上経過した保留中予約を取得する
	GetExpiredPending(ctx context.Context, olderThan time.Duration) ([]*Booking, error)

	// PurgeDeletedBefore は cutoff より前にソフトデリートされた予約を
	// 物理削除し、削除件数を返す。保持期間を過ぎたデータの掃除用
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
