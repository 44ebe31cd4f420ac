package payment

import (
	"context"

	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

// Repository は支払いリポジトリのインターフェース
type Repository interface {
	// Create は新しい支払いを作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, p *Payment) error

	// Update は支払いのステータスとトランザクションIDを更新する（トランザクション必須）
	// 同じトランザクションIDが既に刻印済みなら ErrAlreadyApplied を返す
	Update(ctx context.Context, tx transaction.Tx, p *Payment) error

	// GetByBookingID は予約IDから支払いを取得する
	// 予約に対する支払いは高々1件
	GetByBookingID(ctx context.Context, bookingID string) (*Payment, error)

	// GetByTransactionID はゲートウェイのトランザクションIDから支払いを取得する
	// Webhook の重複配信チェックで使用する
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
}
