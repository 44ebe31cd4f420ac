package item

import (
	"errors"
	"fmt"
)

// Item ドメインのエラー定義
var (
	ErrItemNotFound     = errors.New("商品が見つかりません")
	ErrItemNameRequired = errors.New("商品名は必須です")
	ErrInvalidPrice     = errors.New("1日あたりの料金が不正です")
	ErrInvalidStock     = errors.New("在庫数が不正です")
)

// InsufficientStockError は指定期間の在庫不足を表すエラー
// Available には呼び出し側へ返せる残り数量が入る
type InsufficientStockError struct {
	ItemID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("在庫が不足しています（利用可能: %d, 要求: %d）", e.Available, e.Requested)
}

// IsInsufficientStock はエラーが在庫不足かを判定する
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
