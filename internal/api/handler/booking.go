package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aslamabdika18/Sewa-In/internal/application"
	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type BookingItemRequest struct {
	ItemID   string `json:"item_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity int    `json:"quantity" validate:"required,min=1" example:"2"`
}

type CreateBookingRequest struct {
	StartDate time.Time            `json:"start_date" validate:"required"`
	EndDate   time.Time            `json:"end_date" validate:"required"`
	Items     []BookingItemRequest `json:"items" validate:"required,min=1,dive"`
}

type BookingLineResponse struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type BookingResponse struct {
	ID         string                `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID     string                `json:"user_id" example:"user-123"`
	StartDate  time.Time             `json:"start_date"`
	EndDate    time.Time             `json:"end_date"`
	Status     string                `json:"status" example:"pending"`
	TotalPrice int                   `json:"total_price" example:"16000"`
	Items      []BookingLineResponse `json:"items"`
	CreatedAt  time.Time             `json:"created_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	lines := make([]BookingLineResponse, len(b.Lines))
	for i, line := range b.Lines {
		lines[i] = BookingLineResponse{ItemID: line.ItemID, Quantity: line.Quantity}
	}
	return BookingResponse{
		ID: b.ID, UserID: b.UserID,
		StartDate: b.StartDate, EndDate: b.EndDate,
		Status: string(b.Status), TotalPrice: b.TotalPrice,
		Items: lines, CreatedAt: b.CreatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 指定期間のレンタル予約を作成します
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 408 {object} map[string]string "トランザクションタイムアウト"
// @Failure 409 {object} map[string]string "並行予約との競合"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	items := make([]application.BookingItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = application.BookingItemInput{ItemID: it.ItemID, Quantity: it.Quantity}
	}

	b, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		UserID:    userID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Items:     items,
	})
	if err != nil {
		return bookingErrorToHTTP(err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// bookingErrorToHTTP は予約作成エラーをHTTPステータスに対応づける
func bookingErrorToHTTP(err error) error {
	var stockErr *item.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return echo.NewHTTPError(http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, item.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrBookingConflict):
		// 入力に問題はない。クライアントはリトライで解決できる
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrTransactionTimeout):
		return echo.NewHTTPError(http.StatusRequestTimeout, err.Error())
	case errors.Is(err, booking.ErrUserIDRequired),
		errors.Is(err, booking.ErrInvalidDateRange),
		errors.Is(err, booking.ErrStartDateInPast),
		errors.Is(err, booking.ErrDurationTooShort),
		errors.Is(err, booking.ErrDurationTooLong),
		errors.Is(err, booking.ErrItemsRequired),
		errors.Is(err, booking.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		// 列挙外のエラーはストア由来の想定外の失敗。クライアントの誤りにしない
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.GetBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetUserBookings godoc
// @Summary ユーザーの予約一覧を取得
// @Description ログインユーザーの予約一覧を取得します
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) GetUserBookings(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.GetUserBookings(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、在庫を解放します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.CancelBooking(c.Request().Context(), id)
	if err != nil {
		return transitionErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Start godoc
// @Summary 貸出開始を記録
// @Description 支払い済み予約の貸出開始を記録します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/start [post]
func (h *BookingHandler) Start(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.StartBooking(c.Request().Context(), id)
	if err != nil {
		return transitionErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Finish godoc
// @Summary 返却完了を記録
// @Description 貸出中予約の返却完了を記録します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/finish [post]
func (h *BookingHandler) Finish(c echo.Context) error {
	id := c.Param("id")
	b, err := h.service.FinishBooking(c.Request().Context(), id)
	if err != nil {
		return transitionErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

func transitionErrorToHTTP(err error) error {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrBookingConflict):
		// 読み出し後に別の遷移が先行した。最新の状態を見て再試行できる
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
