package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/metrics"
)

// paymentMethodSnap は決済ゲートウェイのチェックアウト方式
const paymentMethodSnap = "MIDTRANS_SNAP"

// PaymentService は支払いの作成とゲートウェイ通知の突合を行う
//
// ゲートウェイはネットワークリトライにより同じ通知を複数回配信してくる。
// 通知のトランザクションIDを冪等キーとして記録し、
// 2回目以降の配信は一切の副作用なしに前回の結果を返す
type PaymentService struct {
	txManager   transaction.Manager
	paymentRepo payment.Repository
	bookingRepo booking.Repository
	notifier    Notifier
	metrics     *metrics.Metrics // nil可
}

// NewPaymentService は新しいPaymentServiceを作成する
func NewPaymentService(
	tm transaction.Manager,
	pr payment.Repository,
	br booking.Repository,
	notifier Notifier,
	m *metrics.Metrics,
) *PaymentService {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &PaymentService{
		txManager: tm, paymentRepo: pr, bookingRepo: br,
		notifier: notifier, metrics: m,
	}
}

// PaymentEventInput はゲートウェイWebhook通知の入力
type PaymentEventInput struct {
	TransactionID     string
	BookingID         string
	TransactionStatus string
	FraudStatus       string
	Amount            int
}

// PaymentEventResult は通知処理の結果
// Applied が false の場合は重複配信で、前回の結果をそのまま返している
type PaymentEventResult struct {
	Applied       bool
	Payment       *payment.Payment
	BookingStatus booking.Status
}

// ApplyPaymentEvent はゲートウェイの支払い通知を予約に反映する
//
// 冪等性プロトコル:
//  1. トランザクションIDが既に記録済みなら AlreadyApplied（副作用なし）
//  2. 未記録なら、冪等キーの記録とステータス更新を同一トランザクションで書く
//  3. 支払い成功なら予約を paid に遷移、失敗なら pending のまま（リトライ可能）
//  4. 通知の配信は初回適用時のみ
func (s *PaymentService) ApplyPaymentEvent(ctx context.Context, input PaymentEventInput) (*PaymentEventResult, error) {
	if input.TransactionID == "" {
		return nil, payment.ErrTransactionIDRequired
	}

	// 重複配信チェック
	existing, err := s.paymentRepo.GetByTransactionID(ctx, input.TransactionID)
	if err == nil {
		s.recordPaymentEvent("duplicate")
		logger.Info("支払い通知の重複配信を検出",
			zap.String("transaction_id", input.TransactionID),
			zap.String("payment_id", existing.ID),
		)
		return &PaymentEventResult{
			Applied:       false,
			Payment:       existing,
			BookingStatus: s.bookingStatusOf(ctx, existing.BookingID),
		}, nil
	}
	if !errors.Is(err, payment.ErrPaymentNotFound) {
		s.recordPaymentEvent("error")
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		s.recordPaymentEvent("booking_not_found")
		return nil, err
	}

	status := payment.StatusFromGateway(input.TransactionStatus, input.FraudStatus)

	prevStatus := b.Status
	p, err := s.applyInTx(ctx, b, input, status)
	if errors.Is(err, payment.ErrAlreadyApplied) {
		// 事前チェックをすり抜けた同時配信。先にコミットした側が勝つ
		s.recordPaymentEvent("duplicate")
		applied, err := s.paymentRepo.GetByTransactionID(ctx, input.TransactionID)
		if err != nil {
			return nil, err
		}
		return &PaymentEventResult{
			Applied:       false,
			Payment:       applied,
			BookingStatus: s.bookingStatusOf(ctx, applied.BookingID),
		}, nil
	}
	if err != nil {
		s.recordPaymentEvent("error")
		return nil, err
	}

	s.recordPaymentEvent("applied")
	if s.metrics != nil && prevStatus != b.Status {
		s.metrics.ActiveBookings.WithLabelValues(string(prevStatus)).Dec()
		s.metrics.ActiveBookings.WithLabelValues(string(b.Status)).Inc()
	}
	logger.Info("支払い通知を適用",
		zap.String("transaction_id", input.TransactionID),
		zap.String("booking_id", b.ID),
		zap.String("payment_status", string(status)),
		zap.String("booking_status", string(b.Status)),
	)

	// 成功通知は初回適用時のみ。重複配信では既にここへ到達しない
	if status == payment.StatusSuccess {
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.notifier.PaymentSucceeded(notifyCtx, p)
		}()
	}

	return &PaymentEventResult{Applied: true, Payment: p, BookingStatus: b.Status}, nil
}

// applyInTx は支払いレコードの更新と予約のステータス遷移を
// 1つのトランザクションで適用する。冪等キーの記録とステータス反映が
// 別々にコミットされると、二重適用や適用漏れの余地が生まれるため
func (s *PaymentService) applyInTx(ctx context.Context, b *booking.Booking, input PaymentEventInput, status payment.Status) (*payment.Payment, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	p, err := s.paymentRepo.GetByBookingID(ctx, b.ID)
	switch {
	case err == nil:
		p.Apply(input.TransactionID, status)
		if err := s.paymentRepo.Update(ctx, tx, p); err != nil {
			return nil, err
		}
	case errors.Is(err, payment.ErrPaymentNotFound):
		amount := input.Amount
		if amount <= 0 {
			amount = b.TotalPrice
		}
		p = payment.NewPayment(b.ID, amount, paymentMethodSnap)
		p.Apply(input.TransactionID, status)
		if err := s.paymentRepo.Create(ctx, tx, p); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	// 支払い成功なら予約を paid へ。失敗時は pending のまま残し、
	// ユーザーの支払いリトライを許可する（自動キャンセルはしない）
	// 読み出し後にキャンセル等が先行コミットしていた場合、
	// 条件付きUPDATEが競合を返し、全体がロールバックされる
	if status == payment.StatusSuccess && b.IsPending() {
		if err := b.MarkPaid(); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.Update(ctx, tx, b, booking.StatusPending); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return p, nil
}

// CreatePayment はチェックアウト前の支払いレコードを作成する
// 予約に対する支払いは高々1件。既に存在する場合はそれを返す
func (s *PaymentService) CreatePayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsPending() {
		return nil, payment.ErrBookingNotPayable
	}

	existing, err := s.paymentRepo.GetByBookingID(ctx, bookingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, err
	}

	p := payment.NewPayment(b.ID, b.TotalPrice, paymentMethodSnap)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()
	if err := s.paymentRepo.Create(ctx, tx, p); err != nil {
		// 同時リクエストが先に作成した場合はそちらを返す
		if errors.Is(err, payment.ErrAlreadyApplied) {
			return s.paymentRepo.GetByBookingID(ctx, bookingID)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return p, nil
}

// GetPayment は予約IDから支払いを取得する
func (s *PaymentService) GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	return s.paymentRepo.GetByBookingID(ctx, bookingID)
}

// bookingStatusOf は重複配信の応答用に予約の現在ステータスを引く
// ソフトデリート済み等で見つからない場合は空を返す（応答は成功のまま）
func (s *PaymentService) bookingStatusOf(ctx context.Context, bookingID string) booking.Status {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return ""
	}
	return b.Status
}

func (s *PaymentService) recordPaymentEvent(result string) {
	if s.metrics != nil {
		s.metrics.PaymentEventsTotal.WithLabelValues(result).Inc()
	}
}
