package application

import (
	"context"

	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
)

// ItemService は商品カタログの読み取りを提供する
// 商品の登録・更新は管理バッチが直接行うため、APIからは読み取りのみ
type ItemService struct {
	itemRepo item.Repository
}

// NewItemService は新しいItemServiceを作成する
func NewItemService(ir item.Repository) *ItemService {
	return &ItemService{itemRepo: ir}
}

// GetItem はIDから商品を取得する
func (s *ItemService) GetItem(ctx context.Context, id string) (*item.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ListItems は商品一覧を取得する
func (s *ItemService) ListItems(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.itemRepo.List(ctx, limit, offset)
}
