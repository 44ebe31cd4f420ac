package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aslamabdika18/Sewa-In/internal/config"
	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
	"github.com/aslamabdika18/Sewa-In/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

func (m *MockTxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking, from booking.Status) error {
	args := m.Called(ctx, tx, b, from)
	return args.Error(0)
}

func (m *MockBookingRepository) OverlappingQuantity(ctx context.Context, itemID string, start, end time.Time) (int, error) {
	args := m.Called(ctx, itemID, start, end)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) OverlappingQuantityTx(ctx context.Context, tx transaction.Tx, itemID string, start, end time.Time) (int, error) {
	args := m.Called(ctx, tx, itemID, start, end)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) GetExpiredPending(ctx context.Context, olderThan time.Duration) ([]*booking.Booking, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

// MockItemRepository implements item.Repository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*item.Item, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, limit, offset int) ([]*item.Item, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*item.Item), args.Error(1)
}

// MockPaymentRepository implements payment.Repository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	args := m.Called(ctx, tx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*payment.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

// === Test helper ===

type testDeps struct {
	txManager   *MockTxManager
	tx          *MockTx
	bookingRepo *MockBookingRepository
	itemRepo    *MockItemRepository
	paymentRepo *MockPaymentRepository
	service     *BookingService
	payments    *PaymentService
}

func testPolicy() config.BookingConfig {
	return config.BookingConfig{
		MinDurationDays: 1,
		MaxDurationDays: 30,
		TxTimeout:       5 * time.Second,
		PaymentExpiry:   24 * time.Hour,
		RetentionAge:    90 * 24 * time.Hour,
	}
}

func newTestDeps() *testDeps {
	txm := new(MockTxManager)
	tx := new(MockTx)
	bookingRepo := new(MockBookingRepository)
	itemRepo := new(MockItemRepository)
	paymentRepo := new(MockPaymentRepository)

	availability := NewAvailabilityService(itemRepo, bookingRepo, nil)
	service := NewBookingService(txm, bookingRepo, itemRepo, availability, nil, nil, testPolicy())
	payments := NewPaymentService(txm, paymentRepo, bookingRepo, nil, nil)

	return &testDeps{
		txManager:   txm,
		tx:          tx,
		bookingRepo: bookingRepo,
		itemRepo:    itemRepo,
		paymentRepo: paymentRepo,
		service:     service,
		payments:    payments,
	}
}

func validInput() CreateBookingInput {
	now := time.Now()
	return CreateBookingInput{
		UserID:    "user-1",
		StartDate: now.Add(24 * time.Hour),
		EndDate:   now.Add(72 * time.Hour),
		Items:     []BookingItemInput{{ItemID: "item-1", Quantity: 2}},
	}
}

// === Tests ===

func TestBookingService_CreateBooking_Success(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()
	input := validInput()

	camera := &item.Item{ID: "item-1", Name: "ミラーレスカメラ", PricePerDay: 1000, Stock: 5}

	// CreateBooking はトランザクション用にタイムアウト付き ctx を派生させる
	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.tx.On("Commit").Return(nil)

	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").Return(camera, nil)
	deps.bookingRepo.On("OverlappingQuantityTx", mock.Anything, deps.tx, "item-1", input.StartDate, input.EndDate).
		Return(1, nil)
	deps.bookingRepo.On("Create", mock.Anything, deps.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)

	result, err := deps.service.CreateBooking(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, booking.StatusPending, result.Status)
	// 1000円/日 × 2個 × 2日
	assert.Equal(t, 4000, result.TotalPrice)

	deps.txManager.AssertExpectations(t)
	deps.bookingRepo.AssertExpectations(t)
	deps.itemRepo.AssertExpectations(t)
}

func TestBookingService_CreateBooking_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateBookingInput)
		wantErr error
	}{
		{
			name:    "ユーザーIDなし",
			mutate:  func(in *CreateBookingInput) { in.UserID = "" },
			wantErr: booking.ErrUserIDRequired,
		},
		{
			name:    "開始日が終了日以降",
			mutate:  func(in *CreateBookingInput) { in.EndDate = in.StartDate },
			wantErr: booking.ErrInvalidDateRange,
		},
		{
			name: "開始日が過去",
			mutate: func(in *CreateBookingInput) {
				in.StartDate = time.Now().Add(-24 * time.Hour)
			},
			wantErr: booking.ErrStartDateInPast,
		},
		{
			name:    "商品指定なし",
			mutate:  func(in *CreateBookingInput) { in.Items = nil },
			wantErr: booking.ErrItemsRequired,
		},
		{
			name: "数量ゼロ",
			mutate: func(in *CreateBookingInput) {
				in.Items = []BookingItemInput{{ItemID: "item-1", Quantity: 0}}
			},
			wantErr: booking.ErrInvalidQuantity,
		},
		{
			name: "期間が長すぎる",
			mutate: func(in *CreateBookingInput) {
				in.EndDate = in.StartDate.Add(60 * 24 * time.Hour)
			},
			wantErr: booking.ErrDurationTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			input := validInput()
			tt.mutate(&input)

			result, err := deps.service.CreateBooking(context.Background(), input)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.wantErr))
			// バリデーションエラーではトランザクションを開かない
			deps.txManager.AssertNotCalled(t, "BeginSerializable")
		})
	}
}

func TestBookingService_CreateBooking_InsufficientStock(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	camera := &item.Item{ID: "item-1", Name: "ミラーレスカメラ", PricePerDay: 1000, Stock: 5}

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)

	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").Return(camera, nil)
	// 既存予約が4件重なっており、残り1個に対して2個要求
	deps.bookingRepo.On("OverlappingQuantityTx", mock.Anything, deps.tx, "item-1", input.StartDate, input.EndDate).
		Return(4, nil)

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)

	var stockErr *item.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "item-1", stockErr.ItemID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	deps.tx.AssertNotCalled(t, "Commit")
	deps.bookingRepo.AssertNotCalled(t, "Create")
}

func TestBookingService_CreateBooking_StockShortCircuit(t *testing.T) {
	deps := newTestDeps()
	input := validInput()
	input.Items = []BookingItemInput{{ItemID: "item-1", Quantity: 10}}

	camera := &item.Item{ID: "item-1", Name: "ミラーレスカメラ", PricePerDay: 1000, Stock: 5}

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").Return(camera, nil)

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, item.IsInsufficientStock(err))
	// 総在庫超過なら重複集計クエリ自体を省略する
	deps.bookingRepo.AssertNotCalled(t, "OverlappingQuantityTx")
}

func TestBookingService_CreateBooking_ItemNotFound(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").
		Return(nil, item.ErrItemNotFound)

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, item.ErrItemNotFound))
}

func TestBookingService_CreateBooking_SerializationConflict(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	camera := &item.Item{ID: "item-1", Name: "ミラーレスカメラ", PricePerDay: 1000, Stock: 5}

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").Return(camera, nil)
	deps.bookingRepo.On("OverlappingQuantityTx", mock.Anything, deps.tx, "item-1", input.StartDate, input.EndDate).
		Return(0, nil)
	deps.bookingRepo.On("Create", mock.Anything, deps.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
	// 並行トランザクションとの競合でコミットが直列化異常になる
	deps.tx.On("Commit").Return(&pq.Error{Code: "40001"})

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, booking.ErrBookingConflict))
}

func TestBookingService_CreateBooking_Timeout(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").
		Return(nil, context.DeadlineExceeded)

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, booking.ErrTransactionTimeout))
}

func TestBookingService_CreateBooking_QueryCanceled(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	deps.txManager.On("BeginSerializable", mock.Anything).Return(deps.tx, nil)
	deps.tx.On("Rollback").Return(nil)
	deps.itemRepo.On("GetByIDTx", mock.Anything, deps.tx, "item-1").
		Return(nil, &pq.Error{Code: "57014"})

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, booking.ErrTransactionTimeout))
}

func TestBookingService_CreateBooking_BeginFailed(t *testing.T) {
	deps := newTestDeps()
	input := validInput()

	deps.txManager.On("BeginSerializable", mock.Anything).
		Return(nil, errors.New("db connection failed"))

	result, err := deps.service.CreateBooking(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "トランザクション開始に失敗")
}

func TestBookingService_GetBooking(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	expected := &booking.Booking{ID: "booking-1", UserID: "user-1"}
	deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(expected, nil)

	result, err := deps.service.GetBooking(ctx, "booking-1")

	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestBookingService_GetUserBookings(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	expected := []*booking.Booking{
		{ID: "booking-1", UserID: "user-1"},
		{ID: "booking-2", UserID: "user-1"},
	}
	deps.bookingRepo.On("GetByUserID", ctx, "user-1", 20, 0).Return(expected, nil)

	result, err := deps.service.GetUserBookings(ctx, "user-1", 0, 0)

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Run("保留中をキャンセル", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{
			ID: "booking-1", UserID: "user-1",
			Status: booking.StatusPending,
			Lines:  []*booking.Line{{ItemID: "item-1", Quantity: 1}},
		}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("Update", ctx, deps.tx, b, booking.StatusPending).Return(nil)

		result, err := deps.service.CancelBooking(ctx, "booking-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, result.Status)
		assert.NotNil(t, result.DeletedAt)
	})

	t.Run("別の遷移が先行コミットしていたら競合", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{
			ID: "booking-1", UserID: "user-1",
			Status: booking.StatusPending,
			Lines:  []*booking.Line{{ItemID: "item-1", Quantity: 1}},
		}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		// 読み出し後にWebhookが paid を先にコミットしたケース:
		// 条件付きUPDATEが0行となり競合が返る
		deps.bookingRepo.On("Update", ctx, deps.tx, b, booking.StatusPending).
			Return(booking.ErrBookingConflict)

		result, err := deps.service.CancelBooking(ctx, "booking-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, booking.ErrBookingConflict))
		deps.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("貸出中はキャンセル不可", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{ID: "booking-1", Status: booking.StatusOngoing}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)

		result, err := deps.service.CancelBooking(ctx, "booking-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, booking.ErrInvalidTransition))
		deps.txManager.AssertNotCalled(t, "Begin")
	})

	t.Run("予約が見つからない", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		deps.bookingRepo.On("GetByID", ctx, "nonexistent").
			Return(nil, booking.ErrBookingNotFound)

		result, err := deps.service.CancelBooking(ctx, "nonexistent")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, booking.ErrBookingNotFound))
	})
}

func TestBookingService_StartAndFinish(t *testing.T) {
	t.Run("支払い済みから貸出開始", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{ID: "booking-1", Status: booking.StatusPaid}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("Update", ctx, deps.tx, b, booking.StatusPaid).Return(nil)

		result, err := deps.service.StartBooking(ctx, "booking-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusOngoing, result.Status)
	})

	t.Run("保留中は貸出開始不可", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{ID: "booking-1", Status: booking.StatusPending}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)

		result, err := deps.service.StartBooking(ctx, "booking-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, booking.ErrInvalidTransition))
	})

	t.Run("貸出中から返却完了", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		b := &booking.Booking{ID: "booking-1", Status: booking.StatusOngoing}
		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("Update", ctx, deps.tx, b, booking.StatusOngoing).Return(nil)

		result, err := deps.service.FinishBooking(ctx, "booking-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusFinished, result.Status)
	})
}

func TestBookingService_CancelExpiredBookings(t *testing.T) {
	t.Run("期限切れを一括キャンセル", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		expired := []*booking.Booking{
			{ID: "booking-1", Status: booking.StatusPending, Lines: []*booking.Line{{ItemID: "item-1", Quantity: 1}}},
			{ID: "booking-2", Status: booking.StatusPending, Lines: []*booking.Line{{ItemID: "item-2", Quantity: 1}}},
		}
		deps.bookingRepo.On("GetExpiredPending", ctx, 24*time.Hour).Return(expired, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("Update", ctx, deps.tx, mock.AnythingOfType("*booking.Booking"), booking.StatusPending).Return(nil)

		count, err := deps.service.CancelExpiredBookings(ctx, 24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("期限ゼロなら何もしない", func(t *testing.T) {
		deps := newTestDeps()

		count, err := deps.service.CancelExpiredBookings(context.Background(), 0)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		deps.bookingRepo.AssertNotCalled(t, "GetExpiredPending")
	})

	t.Run("一部の更新が失敗しても続行", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		expired := []*booking.Booking{
			{ID: "booking-1", Status: booking.StatusPending},
			{ID: "booking-2", Status: booking.StatusPending},
		}
		deps.bookingRepo.On("GetExpiredPending", ctx, 24*time.Hour).Return(expired, nil)

		tx1 := new(MockTx)
		deps.txManager.On("Begin", ctx).Return(tx1, nil).Once()
		tx1.On("Rollback").Return(nil)
		deps.bookingRepo.On("Update", ctx, tx1, expired[0], booking.StatusPending).Return(errors.New("update error")).Once()

		tx2 := new(MockTx)
		deps.txManager.On("Begin", ctx).Return(tx2, nil).Once()
		tx2.On("Rollback").Return(nil)
		tx2.On("Commit").Return(nil)
		deps.bookingRepo.On("Update", ctx, tx2, expired[1], booking.StatusPending).Return(nil).Once()

		count, err := deps.service.CancelExpiredBookings(ctx, 24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestBookingService_PurgeDeletedBookings(t *testing.T) {
	t.Run("保持期間を過ぎた予約を削除", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()

		deps.bookingRepo.On("PurgeDeletedBefore", ctx, mock.AnythingOfType("time.Time")).
			Return(3, nil)

		count, err := deps.service.PurgeDeletedBookings(ctx, 90*24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("保持期間ゼロなら何もしない", func(t *testing.T) {
		deps := newTestDeps()

		count, err := deps.service.PurgeDeletedBookings(context.Background(), 0)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		deps.bookingRepo.AssertNotCalled(t, "PurgeDeletedBefore")
	})
}
