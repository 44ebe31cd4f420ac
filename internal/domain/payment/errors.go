package payment

import "errors"

// Payment ドメインのエラー定義
var (
	ErrPaymentNotFound   = errors.New("支払いが見つかりません")
	ErrBookingIDRequired = errors.New("予約IDは必須です")
	ErrInvalidAmount     = errors.New("支払い金額が不正です")
	ErrBookingNotPayable = errors.New("この予約は支払いできる状態ではありません")

	ErrTransactionIDRequired = errors.New("トランザクションIDは必須です")

	// ErrAlreadyApplied は同じトランザクションIDの通知が既に適用済みで
	// あることを表す。エラーではなく冪等な再配信の正常な結果として扱う
	ErrAlreadyApplied = errors.New("支払い通知は適用済みです")
)
