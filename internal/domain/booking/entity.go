package booking

import (
	"math"
	"time"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOngoing   Status = "ongoing"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// transitions は予約ステータスの遷移テーブル
// finished と cancelled は終端状態で、ここから先の遷移はない
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusFinished},
	StatusFinished:  {},
	StatusCancelled: {},
}

// CanTransitionTo は next への遷移が許可されているかを返す
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal は終端状態かを返す
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsActive は在庫を占有する状態かを返す
// 空き状況の計算では pending / paid / ongoing の予約のみを数える
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusPaid || s == StatusOngoing
}

// Line は予約の明細行を表す（商品と数量の組）
// 作成後は不変。キャンセルや返金は予約単位で扱う
type Line struct {
	ID        string
	BookingID string
	ItemID    string
	Quantity  int
}

// Booking は予約エンティティを表す
// 期間は半開区間 [StartDate, EndDate) で扱う
type Booking struct {
	ID         string
	UserID     string
	StartDate  time.Time
	EndDate    time.Time
	Status     Status
	TotalPrice int
	Lines      []*Line
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewBooking は新しい予約を pending 状態で作成する
func NewBooking(userID string, startDate, endDate time.Time, lines []*Line) *Booking {
	now := time.Now()
	return &Booking{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    StatusPending,
		Lines:     lines,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DurationDays はレンタル日数を返す（切り上げ、最低1日）
func (b *Booking) DurationDays() int {
	days := int(math.Ceil(b.EndDate.Sub(b.StartDate).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// Overlaps は半開区間 [start, end) と期間が重なるかを返す
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartDate.Before(end) && b.EndDate.After(start)
}

// transitionTo は遷移テーブルに従ってステータスを変更する
// 許可されない遷移は状態を変更せず ErrInvalidTransition を返す
func (b *Booking) transitionTo(next Status) error {
	if !b.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	b.Status = next
	b.UpdatedAt = time.Now()
	return nil
}

// MarkPaid は支払い完了により予約を paid にする
func (b *Booking) MarkPaid() error {
	return b.transitionTo(StatusPaid)
}

// Start は貸出開始により予約を ongoing にする
func (b *Booking) Start() error {
	return b.transitionTo(StatusOngoing)
}

// Finish は返却完了により予約を finished にする
func (b *Booking) Finish() error {
	return b.transitionTo(StatusFinished)
}

// Cancel は予約をキャンセルする
// 監査・決済履歴を残すため、物理削除ではなく DeletedAt を立てるソフトデリート
// pending / paid からのみキャンセル可能
func (b *Booking) Cancel() error {
	if b.Status != StatusPending && b.Status != StatusPaid {
		return ErrInvalidTransition
	}
	if err := b.transitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	b.DeletedAt = &now
	return nil
}

// IsPending は予約が保留中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// IsDeleted はソフトデリート済みかを返す
func (b *Booking) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if !b.StartDate.Before(b.EndDate) {
		return ErrInvalidDateRange
	}
	if len(b.Lines) == 0 {
		return ErrItemsRequired
	}
	for _, line := range b.Lines {
		if line.ItemID == "" {
			return ErrItemsRequired
		}
		if line.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
