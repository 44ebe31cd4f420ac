package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
	"github.com/aslamabdika18/Sewa-In/internal/infrastructure/rabbitmq"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
)

// Notifier はコミット後の通知を配信するインターフェース
// 通知は fire-and-forget であり、失敗しても予約や支払いの結果には影響しない
type Notifier interface {
	// BookingCreated は予約確定通知を配信する
	BookingCreated(ctx context.Context, b *booking.Booking)

	// PaymentSucceeded は支払い完了通知を配信する
	PaymentSucceeded(ctx context.Context, p *payment.Payment)
}

// BookingCreatedEvent は予約作成通知のペイロード
type BookingCreatedEvent struct {
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	TotalPrice int       `json:"total_price"`
}

// PaymentSucceededEvent は支払い完了通知のペイロード
type PaymentSucceededEvent struct {
	PaymentID     string `json:"payment_id"`
	BookingID     string `json:"booking_id"`
	Amount        int    `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// EventPublisher はメッセージブローカーへの発行を抽象化する
// 本番では rabbitmq.Publisher が実装する
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AMQPNotifier はRabbitMQ経由で通知イベントを配信する
type AMQPNotifier struct {
	publisher EventPublisher
}

// NewAMQPNotifier は新しいAMQPNotifierを作成する
func NewAMQPNotifier(publisher EventPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) BookingCreated(ctx context.Context, b *booking.Booking) {
	event := BookingCreatedEvent{
		BookingID: b.ID, UserID: b.UserID,
		StartDate: b.StartDate, EndDate: b.EndDate,
		TotalPrice: b.TotalPrice,
	}
	if err := n.publisher.PublishJSON(ctx, rabbitmq.RKBookingCreated, event); err != nil {
		// 通知失敗はログに残すだけ。予約自体は既にコミット済み
		logger.Error("予約確定通知の配信に失敗",
			zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (n *AMQPNotifier) PaymentSucceeded(ctx context.Context, p *payment.Payment) {
	event := PaymentSucceededEvent{
		PaymentID: p.ID, BookingID: p.BookingID,
		Amount: p.Amount, TransactionID: p.TransactionID,
	}
	if err := n.publisher.PublishJSON(ctx, rabbitmq.RKPaymentPaid, event); err != nil {
		logger.Error("支払い完了通知の配信に失敗",
			zap.String("payment_id", p.ID), zap.Error(err))
	}
}

// LogNotifier はブローカー未設定時のフォールバック
// 通知内容をログに出力するだけで外部には何も送らない
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) BookingCreated(_ context.Context, b *booking.Booking) {
	logger.Info("予約確定通知（ログのみ）",
		zap.String("booking_id", b.ID), zap.String("user_id", b.UserID))
}

func (n *LogNotifier) PaymentSucceeded(_ context.Context, p *payment.Payment) {
	logger.Info("支払い完了通知（ログのみ）",
		zap.String("payment_id", p.ID), zap.String("booking_id", p.BookingID))
}

var (
	_ Notifier = (*AMQPNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
