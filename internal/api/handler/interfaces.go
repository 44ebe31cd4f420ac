package handler

import (
	"context"
	"time"

	"github.com/aslamabdika18/Sewa-In/internal/application"
	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
)

// ItemServiceInterface は商品カタログの読み取りインターフェース
type ItemServiceInterface interface {
	GetItem(ctx context.Context, id string) (*item.Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]*item.Item, error)
}

// AvailabilityServiceInterface は空き状況見積もりのインターフェース
type AvailabilityServiceInterface interface {
	Estimate(ctx context.Context, itemID string, start, end time.Time) (*item.Availability, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error)
	CancelBooking(ctx context.Context, id string) (*booking.Booking, error)
	StartBooking(ctx context.Context, id string) (*booking.Booking, error)
	FinishBooking(ctx context.Context, id string) (*booking.Booking, error)
}

// PaymentServiceInterface は支払いサービスのインターフェース
type PaymentServiceInterface interface {
	CreatePayment(ctx context.Context, bookingID string) (*payment.Payment, error)
	GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error)
	ApplyPaymentEvent(ctx context.Context, input application.PaymentEventInput) (*application.PaymentEventResult, error)
}
