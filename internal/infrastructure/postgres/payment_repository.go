package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

type paymentRow struct {
	ID            string    `db:"id"`
	BookingID     string    `db:"booking_id"`
	Amount        int       `db:"amount"`
	Method        string    `db:"method"`
	Status        string    `db:"status"`
	TransactionID *string   `db:"transaction_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *paymentRow) toEntity() *payment.Payment {
	p := &payment.Payment{
		ID: r.ID, BookingID: r.BookingID, Amount: r.Amount,
		Method: r.Method, Status: payment.Status(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if r.TransactionID != nil {
		p.TransactionID = *r.TransactionID
	}
	return p
}

const paymentColumns = `id, booking_id, amount, method, status, transaction_id, created_at, updated_at`

type PaymentRepository struct{ db *sqlx.DB }

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO payments (booking_id, amount, method, status, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		p.BookingID, p.Amount, p.Method, string(p.Status), nullableString(p.TransactionID), p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			// booking_id または transaction_id のユニーク制約違反
			// 同時配信のもう一方が先にコミットしたケース
			return fmt.Errorf("支払いが既に存在します: %w", payment.ErrAlreadyApplied)
		}
		return fmt.Errorf("支払い作成に失敗: %w", err)
	}
	return nil
}

// Update は冪等キー（transaction_id）とステータスを同一UPDATEで書き込む
// 別々に書くと片方だけ永続化される余地が生まれ、二重適用を防げなくなる
// 同じトランザクションIDが既に刻印済みの行には書き込まない。
// 事前の重複チェックをすり抜けた同時配信はここで0行更新となる
func (r *PaymentRepository) Update(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE payments SET status = $1, transaction_id = $2, method = $3, updated_at = $4
		WHERE id = $5 AND transaction_id IS DISTINCT FROM $2`
	result, err := sqlxTx.ExecContext(ctx, query,
		string(p.Status), nullableString(p.TransactionID), p.Method, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("支払い更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return payment.ErrAlreadyApplied
	}
	return nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*payment.Payment, error) {
	var row paymentRow
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1`
	if err := r.db.GetContext(ctx, &row, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("支払い取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	var row paymentRow
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	if err := r.db.GetContext(ctx, &row, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("支払い取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ payment.Repository = (*PaymentRepository)(nil)
