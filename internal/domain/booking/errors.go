package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound   = errors.New("予約が見つかりません")
	ErrInvalidTransition = errors.New("許可されていないステータス遷移です")
	ErrUserIDRequired    = errors.New("ユーザーIDは必須です")
	ErrInvalidDateRange  = errors.New("開始日は終了日より前でなければなりません")
	ErrStartDateInPast   = errors.New("開始日は未来の日付でなければなりません")
	ErrDurationTooShort  = errors.New("レンタル期間が短すぎます")
	ErrDurationTooLong   = errors.New("レンタル期間が長すぎます")
	ErrItemsRequired     = errors.New("商品は1つ以上指定してください")
	ErrInvalidQuantity   = errors.New("数量は1以上でなければなりません")

	// ErrBookingConflict は同時更新による競合を表す
	// 直列化異常でのコミット失敗と、読み出し後に別の遷移が先行
	// コミットしたケースの両方で返る。入力の誤りではないため
	// 呼び出し側はリトライ可能なエラーとして扱う
	ErrBookingConflict = errors.New("予約が競合しました。もう一度お試しください")

	// ErrTransactionTimeout はトランザクションのタイムアウトを表す
	// 競合とは区別して返し、呼び出し側はバックオフして再試行する
	ErrTransactionTimeout = errors.New("予約処理がタイムアウトしました")
)
