package item

import "time"

// Item はレンタル商品エンティティを表す
// 在庫（Stock）は物理的な総数であり、日付ごとの空き数は
// 予約の重なりから都度計算する
type Item struct {
	ID          string
	Name        string
	Description string
	CategoryID  *string
	PricePerDay int
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewItem は新しい商品を作成する
func NewItem(name, description string, pricePerDay, stock int) *Item {
	now := time.Now()
	return &Item{
		Name:        name,
		Description: description,
		PricePerDay: pricePerDay,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate は商品の検証を行う
func (i *Item) Validate() error {
	if i.Name == "" {
		return ErrItemNameRequired
	}
	if i.PricePerDay < 0 {
		return ErrInvalidPrice
	}
	if i.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Availability は指定期間における商品の空き状況を表す
// Reserved は期間と重なるアクティブな予約の数量合計
type Availability struct {
	ItemID    string
	Stock     int
	Reserved  int
	Available int
}

// CanReserve は指定数量を予約可能かを返す
func (a *Availability) CanReserve(quantity int) bool {
	return quantity <= a.Available
}
