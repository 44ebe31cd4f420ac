package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aslamabdika18/Sewa-In/internal/domain/booking"
	"github.com/aslamabdika18/Sewa-In/internal/domain/item"
)

type ItemHandler struct {
	service      ItemServiceInterface
	availability AvailabilityServiceInterface
}

func NewItemHandler(s ItemServiceInterface, av AvailabilityServiceInterface) *ItemHandler {
	return &ItemHandler{service: s, availability: av}
}

type ItemResponse struct {
	ID          string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string    `json:"name" example:"ミラーレスカメラ α7"`
	Description string    `json:"description,omitempty"`
	PricePerDay int       `json:"price_per_day" example:"5000"`
	Stock       int       `json:"stock" example:"3"`
	CreatedAt   time.Time `json:"created_at"`
}

func toItemResponse(it *item.Item) ItemResponse {
	return ItemResponse{
		ID: it.ID, Name: it.Name, Description: it.Description,
		PricePerDay: it.PricePerDay, Stock: it.Stock,
		CreatedAt: it.CreatedAt,
	}
}

type AvailabilityResponse struct {
	ItemID    string `json:"item_id"`
	Stock     int    `json:"stock" example:"3"`
	Reserved  int    `json:"reserved" example:"1"`
	Available int    `json:"available" example:"2"`
}

// List godoc
// @Summary 商品一覧を取得
// @Description レンタル商品の一覧を取得します
// @Tags items
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ItemResponse
// @Router /items [get]
func (h *ItemHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	items, err := h.service.ListItems(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]ItemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 商品を取得
// @Description 指定IDの商品を取得します
// @Tags items
// @Produce json
// @Param id path string true "商品ID"
// @Success 200 {object} ItemResponse
// @Failure 404 {object} map[string]string
// @Router /items/{id} [get]
func (h *ItemHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	it, err := h.service.GetItem(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, item.ErrItemNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toItemResponse(it))
}

// GetAvailability godoc
// @Summary 空き状況を取得
// @Description 指定期間の商品の空き状況を見積もります。
// @Description 予約を保証するものではありません。
// @Tags items
// @Produce json
// @Param id path string true "商品ID"
// @Param start query string true "開始日 (RFC3339)"
// @Param end query string true "終了日 (RFC3339)"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /items/{id}/availability [get]
func (h *ItemHandler) GetAvailability(c echo.Context) error {
	id := c.Param("id")

	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開始日の形式が不正です")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "終了日の形式が不正です")
	}

	avail, err := h.availability.Estimate(c.Request().Context(), id, start, end)
	if err != nil {
		switch {
		case errors.Is(err, item.ErrItemNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, booking.ErrInvalidDateRange):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, AvailabilityResponse{
		ItemID:    avail.ItemID,
		Stock:     avail.Stock,
		Reserved:  avail.Reserved,
		Available: avail.Available,
	})
}
