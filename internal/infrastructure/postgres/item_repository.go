package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

type itemRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CategoryID  *string   `db:"category_id"`
	PricePerDay int       `db:"price_per_day"`
	Stock       int       `db:"stock"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *itemRow) toEntity() *item.Item {
	return &item.Item{
		ID: r.ID, Name: r.Name, Description: r.Description,
		CategoryID: r.CategoryID, PricePerDay: r.PricePerDay, Stock: r.Stock,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const itemColumns = `id, name, description, category_id, price_per_day, stock, created_at, updated_at`

type ItemRepository struct{ db *sqlx.DB }

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	var row itemRow
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, item.ErrItemNotFound
		}
		return nil, fmt.Errorf("商品取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ItemRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*item.Item, error) {
	sqlxTx := UnwrapTx(tx)
	var row itemRow
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, item.ErrItemNotFound
		}
		return nil, fmt.Errorf("商品取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ItemRepository) List(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	var rows []itemRow
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("商品一覧取得に失敗: %w", err)
	}
	result := make([]*item.Item, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ item.Repository = (*ItemRepository)(nil)
