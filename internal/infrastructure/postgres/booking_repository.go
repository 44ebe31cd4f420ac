package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

type bookingRow struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	StartDate  time.Time  `db:"start_date"`
	EndDate    time.Time  `db:"end_date"`
	Status     string     `db:"status"`
	TotalPrice int        `db:"total_price"`
	DeletedAt  *time.Time `db:"deleted_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

type bookingLineRow struct {
	ID        string `db:"id"`
	BookingID string `db:"booking_id"`
	ItemID    string `db:"item_id"`
	Quantity  int    `db:"quantity"`
}

func (r *bookingRow) toEntity(lines []*booking.Line) *booking.Booking {
	return &booking.Booking{
		ID: r.ID, UserID: r.UserID,
		StartDate: r.StartDate, EndDate: r.EndDate,
		Status: booking.Status(r.Status), TotalPrice: r.TotalPrice,
		Lines: lines, DeletedAt: r.DeletedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const bookingColumns = `id, user_id, start_date, end_date, status, total_price, deleted_at, created_at, updated_at`

// activeStatuses は在庫を占有するステータス
// 空き状況の計算では finished / cancelled を除外する
const activeStatuses = `'pending', 'paid', 'ongoing'`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は予約と明細行を同一トランザクション内で挿入する
// どちらかが失敗した場合は呼び出し側のロールバックで全体が巻き戻る
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO bookings (user_id, start_date, end_date, status, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		b.UserID, b.StartDate, b.EndDate, string(b.Status), b.TotalPrice, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	for _, line := range b.Lines {
		line.BookingID = b.ID
		if err := sqlxTx.QueryRowContext(ctx,
			`INSERT INTO booking_items (booking_id, item_id, quantity) VALUES ($1, $2, $3) RETURNING id`,
			line.BookingID, line.ItemID, line.Quantity,
		).Scan(&line.ID); err != nil {
			return fmt.Errorf("予約明細作成に失敗: %w", err)
		}
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	lines, err := r.getLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toEntity(lines), nil
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return r.toEntities(ctx, rows)
}

// Update は読み出し時点のステータスを条件に含めて書き込む
// 読み出しと書き込みの間に別の遷移がコミットされていた場合、
// 条件が外れて0行更新となり、終端状態の予約を上書きせずに済む
func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking, from booking.Status) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE bookings SET status = $1, deleted_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND deleted_at IS NULL`
	result, err := sqlxTx.ExecContext(ctx, query,
		string(b.Status), b.DeletedAt, b.UpdatedAt, b.ID, string(from))
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingConflict
	}
	return nil
}

const overlappingQuantityQuery = `
	SELECT COALESCE(SUM(bi.quantity), 0)
	FROM booking_items bi
	JOIN bookings b ON b.id = bi.booking_id
	WHERE bi.item_id = $1
	  AND b.deleted_at IS NULL
	  AND b.status IN (` + activeStatuses + `)
	  AND b.start_date < $3
	  AND b.end_date > $2`

// OverlappingQuantity は [start, end) と重なるアクティブ予約の数量合計を返す
// プールされた接続上で実行するため、結果は見積もりにしか使えない
func (r *BookingRepository) OverlappingQuantity(ctx context.Context, itemID string, start, end time.Time) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, overlappingQuantityQuery, itemID, start, end); err != nil {
		return 0, fmt.Errorf("重複予約数の集計に失敗: %w", err)
	}
	return total, nil
}

// OverlappingQuantityTx はトランザクション内で数量合計を返す
// SERIALIZABLEトランザクションから呼ぶことで、この読み取りが
// 並行する予約作成と直列化されることを保証する
func (r *BookingRepository) OverlappingQuantityTx(ctx context.Context, tx transaction.Tx, itemID string, start, end time.Time) (int, error) {
	sqlxTx := UnwrapTx(tx)
	var total int
	if err := sqlxTx.GetContext(ctx, &total, overlappingQuantityQuery, itemID, start, end); err != nil {
		return 0, fmt.Errorf("重複予約数の集計に失敗: %w", err)
	}
	return total, nil
}

func (r *BookingRepository) GetExpiredPending(ctx context.Context, olderThan time.Duration) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'pending' AND deleted_at IS NULL AND created_at < $1`
	if err := r.db.SelectContext(ctx, &rows, query, time.Now().Add(-olderThan)); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	return r.toEntities(ctx, rows)
}

// PurgeDeletedBefore は保持期間を過ぎたソフトデリート済み予約を物理削除する
// 明細行は ON DELETE CASCADE で一緒に消える
func (r *BookingRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookings WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("予約の物理削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (r *BookingRepository) getLines(ctx context.Context, bookingID string) ([]*booking.Line, error) {
	var rows []bookingLineRow
	query := `SELECT id, booking_id, item_id, quantity FROM booking_items WHERE booking_id = $1`
	if err := r.db.SelectContext(ctx, &rows, query, bookingID); err != nil {
		return nil, fmt.Errorf("予約明細取得に失敗: %w", err)
	}
	lines := make([]*booking.Line, len(rows))
	for i, row := range rows {
		lines[i] = &booking.Line{ID: row.ID, BookingID: row.BookingID, ItemID: row.ItemID, Quantity: row.Quantity}
	}
	return lines, nil
}

func (r *BookingRepository) toEntities(ctx context.Context, rows []bookingRow) ([]*booking.Booking, error) {
	result := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		lines, err := r.getLines(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		result[i] = row.toEntity(lines)
	}
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
