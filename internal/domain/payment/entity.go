package payment

import "time"

// Status は支払いの状態を表す
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// 決済ゲートウェイ（Midtrans）が通知してくる transaction_status の語彙
const (
	GatewayStatusCapture    = "capture"
	GatewayStatusSettlement = "settlement"
	GatewayStatusPending    = "pending"
	GatewayStatusDeny       = "deny"
	GatewayStatusCancel     = "cancel"
	GatewayStatusExpire     = "expire"
)

// fraud_status の語彙（capture 時のみ意味を持つ）
const (
	FraudStatusAccept    = "accept"
	FraudStatusChallenge = "challenge"
)

// Payment は支払いエンティティを表す
// TransactionID はゲートウェイ側のトランザクションIDで、
// Webhook の重複配信を検出する冪等キーとして使う
type Payment struct {
	ID            string
	BookingID     string
	Amount        int
	Method        string
	Status        Status
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPayment は新しい支払いを pending 状態で作成する
func NewPayment(bookingID string, amount int, method string) *Payment {
	now := time.Now()
	return &Payment{
		BookingID: bookingID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply はゲートウェイのトランザクションIDとステータスを同時に記録する
// 冪等キーの記録とステータス更新を分けると、片方だけ永続化された場合に
// 二重適用や適用漏れが起きるため、必ずこのメソッドを経由する
func (p *Payment) Apply(transactionID string, status Status) {
	p.TransactionID = transactionID
	p.Status = status
	p.UpdatedAt = time.Now()
}

// Validate は支払いの検証を行う
func (p *Payment) Validate() error {
	if p.BookingID == "" {
		return ErrBookingIDRequired
	}
	if p.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// StatusFromGateway はゲートウェイの通知ステータスを内部ステータスに変換する
//
//	capture + accept    -> success
//	capture + challenge -> pending（不正検知の確認待ち）
//	settlement          -> success
//	deny / cancel / expire -> failed
//	pending / 未知の値    -> pending
func StatusFromGateway(transactionStatus, fraudStatus string) Status {
	switch transactionStatus {
	case GatewayStatusCapture:
		if fraudStatus == FraudStatusAccept {
			return StatusSuccess
		}
		return StatusPending
	case GatewayStatusSettlement:
		return StatusSuccess
	case GatewayStatusDeny, GatewayStatusCancel, GatewayStatusExpire:
		return StatusFailed
	default:
		return StatusPending
	}
}
