package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/application"
	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/payment"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
)

type PaymentHandler struct {
	service PaymentServiceInterface
}

func NewPaymentHandler(s PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type CreatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type PaymentResponse struct {
	ID            string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	BookingID     string    `json:"booking_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Amount        int       `json:"amount" example:"16000"`
	Method        string    `json:"method" example:"MIDTRANS_SNAP"`
	Status        string    `json:"status" example:"pending"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID: p.ID, BookingID: p.BookingID,
		Amount: p.Amount, Method: p.Method,
		Status: string(p.Status), TransactionID: p.TransactionID,
		CreatedAt: p.CreatedAt,
	}
}

// WebhookRequest はMidtrans Webhook通知のペイロード
// ゲートウェイ側のフィールド名に合わせている
type WebhookRequest struct {
	TransactionID     string `json:"transaction_id" validate:"required"`
	OrderID           string `json:"order_id" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       int    `json:"gross_amount"`
}

// WebhookResponse はWebhook処理結果のレスポンス
type WebhookResponse struct {
	Applied bool   `json:"applied"`
	Status  string `json:"status,omitempty"`
}

// Create godoc
// @Summary 支払いを作成
// @Description 保留中の予約に対するチェックアウト用支払いレコードを作成します
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreatePaymentRequest true "支払い情報"
// @Success 201 {object} PaymentResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /payments [post]
func (h *PaymentHandler) Create(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.service.CreatePayment(c.Request().Context(), req.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, payment.ErrBookingNotPayable):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, toPaymentResponse(p))
}

// GetByBookingID godoc
// @Summary 予約の支払いを取得
// @Description 予約IDから支払いを取得します
// @Tags payments
// @Produce json
// @Param booking_id path string true "予約ID"
// @Success 200 {object} PaymentResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{booking_id}/payment [get]
func (h *PaymentHandler) GetByBookingID(c echo.Context) error {
	bookingID := c.Param("booking_id")
	p, err := h.service.GetPayment(c.Request().Context(), bookingID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toPaymentResponse(p))
}

// Webhook godoc
// @Summary 支払いゲートウェイのWebhook
// @Description ゲートウェイからの支払い状態通知を受け取ります。
// @Description 同じ通知の再配信は冪等に処理されます。
// @Description どんな結果でも 200 を返します。エラーを返すとゲートウェイが
// @Description 同じ通知の再送を続けてしまうため、適用できなかった通知は
// @Description ログに残して追跡します。
// @Tags payments
// @Accept json
// @Produce json
// @Param request body WebhookRequest true "通知ペイロード"
// @Success 200 {object} WebhookResponse
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		logger.Warn("解釈できない支払い通知", zap.Error(err))
		return c.JSON(http.StatusOK, WebhookResponse{Applied: false})
	}
	if err := c.Validate(&req); err != nil {
		logger.Warn("不完全な支払い通知",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return c.JSON(http.StatusOK, WebhookResponse{Applied: false})
	}

	result, err := h.service.ApplyPaymentEvent(c.Request().Context(), application.PaymentEventInput{
		TransactionID:     req.TransactionID,
		BookingID:         req.OrderID,
		TransactionStatus: req.TransactionStatus,
		FraudStatus:       req.FraudStatus,
		Amount:            req.GrossAmount,
	})
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			logger.Warn("不明な予約への支払い通知",
				zap.String("order_id", req.OrderID),
				zap.String("transaction_id", req.TransactionID),
			)
		} else {
			logger.Error("支払い通知の適用に失敗",
				zap.String("order_id", req.OrderID),
				zap.String("transaction_id", req.TransactionID),
				zap.Error(err),
			)
		}
		return c.JSON(http.StatusOK, WebhookResponse{Applied: false})
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Applied: result.Applied,
		Status:  string(result.BookingStatus),
	})
}
