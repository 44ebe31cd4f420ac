package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBooking(t *testing.T) *Booking {
	t.Helper()
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(3 * 24 * time.Hour)
	return NewBooking("user-123", start, end, []*Line{
		{ItemID: "item-1", Quantity: 2},
	})
}

func TestNewBooking(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(48 * time.Hour)

	tests := []struct {
		name        string
		userID      string
		start       time.Time
		end         time.Time
		lines       []*Line
		wantErr     bool
		errExpected error
	}{
		{
			name: "正常な予約作成", userID: "user-123", start: start, end: end,
			lines: []*Line{{ItemID: "item-1", Quantity: 1}},
		},
		{
			name: "ユーザーID未指定", userID: "", start: start, end: end,
			lines:   []*Line{{ItemID: "item-1", Quantity: 1}},
			wantErr: true, errExpected: ErrUserIDRequired,
		},
		{
			name: "終了日が開始日より前", userID: "user-123", start: end, end: start,
			lines:   []*Line{{ItemID: "item-1", Quantity: 1}},
			wantErr: true, errExpected: ErrInvalidDateRange,
		},
		{
			name: "商品未指定", userID: "user-123", start: start, end: end,
			lines:   []*Line{},
			wantErr: true, errExpected: ErrItemsRequired,
		},
		{
			name: "数量0", userID: "user-123", start: start, end: end,
			lines:   []*Line{{ItemID: "item-1", Quantity: 0}},
			wantErr: true, errExpected: ErrInvalidQuantity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBooking(tt.userID, tt.start, tt.end, tt.lines)
			err := b.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.errExpected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.userID, b.UserID)
			assert.Equal(t, StatusPending, b.Status)
			assert.Nil(t, b.DeletedAt)
		})
	}
}

func TestBooking_DurationDays(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{name: "ちょうど3日", end: start.Add(3 * 24 * time.Hour), want: 3},
		{name: "2日半は切り上げて3日", end: start.Add(60 * time.Hour), want: 3},
		{name: "1日未満は最低1日", end: start.Add(6 * time.Hour), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{StartDate: start, EndDate: tt.end}
			assert.Equal(t, tt.want, b.DurationDays())
		})
	}
}

func TestBooking_Overlaps(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	b := &Booking{StartDate: start, EndDate: end}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{name: "完全に一致", start: start, end: end, want: true},
		{name: "部分的に重なる", start: start.Add(-48 * time.Hour), end: start.Add(24 * time.Hour), want: true},
		{name: "内側に含まれる", start: start.Add(24 * time.Hour), end: end.Add(-24 * time.Hour), want: true},
		{name: "前に隣接（半開区間なので重ならない）", start: start.Add(-72 * time.Hour), end: start, want: false},
		{name: "後ろに隣接（半開区間なので重ならない）", start: end, end: end.Add(72 * time.Hour), want: false},
		{name: "完全に離れている", start: end.Add(24 * time.Hour), end: end.Add(96 * time.Hour), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Overlaps(tt.start, tt.end))
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusOngoing, false},
		{StatusPaid, StatusOngoing, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusFinished, false},
		{StatusOngoing, StatusFinished, true},
		{StatusOngoing, StatusCancelled, false},
		{StatusFinished, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBooking_MarkPaid(t *testing.T) {
	b := createTestBooking(t)
	err := b.MarkPaid()
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, b.Status)
}

func TestBooking_MarkPaid_AlreadyPaid(t *testing.T) {
	b := createTestBooking(t)
	require.NoError(t, b.MarkPaid())
	err := b.MarkPaid()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusPaid, b.Status)
}

func TestBooking_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr bool
	}{
		{name: "pendingからキャンセル可能", status: StatusPending},
		{name: "paidからキャンセル可能", status: StatusPaid},
		{name: "ongoingからはキャンセル不可", status: StatusOngoing, wantErr: true},
		{name: "finishedからはキャンセル不可", status: StatusFinished, wantErr: true},
		{name: "cancelledからはキャンセル不可", status: StatusCancelled, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := createTestBooking(t)
			b.Status = tt.status
			err := b.Cancel()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				// ステータスは変更されない
				assert.Equal(t, tt.status, b.Status)
				assert.Nil(t, b.DeletedAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, b.Status)
			assert.NotNil(t, b.DeletedAt)
		})
	}
}

func TestBooking_StartAndFinish(t *testing.T) {
	b := createTestBooking(t)
	require.NoError(t, b.MarkPaid())
	require.NoError(t, b.Start())
	assert.Equal(t, StatusOngoing, b.Status)
	require.NoError(t, b.Finish())
	assert.Equal(t, StatusFinished, b.Status)

	// finished は終端状態
	assert.ErrorIs(t, b.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, b.Cancel(), ErrInvalidTransition)
}
