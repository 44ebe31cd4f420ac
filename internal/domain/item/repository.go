package item

import (
	"context"

	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

// Repository は商品リポジトリのインターフェース
// 商品の作成・更新はカタログ管理側の責務のため、ここでは読み取りのみ
type Repository interface {
	// GetByID はIDから商品を取得する
	GetByID(ctx context.Context, id string) (*Item, error)

	// GetByIDTx はトランザクション内でIDから商品を取得する
	// 予約作成時の在庫チェックで使用する
	GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*Item, error)

	// List は商品一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Item, error)
}
