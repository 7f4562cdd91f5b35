package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"settlement/internal/settlement/application"
	"settlement/internal/settlement/domain"
	"settlement/pkg/errors"
	"settlement/pkg/middleware"
)

// OrderHandler handles HTTP requests for the shopper's order views and
// lifecycle actions.
type OrderHandler struct {
	useCase *application.OrderUseCase
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(useCase *application.OrderUseCase) *OrderHandler {
	return &OrderHandler{useCase: useCase}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:orderID", h.GetOrder)
		orders.POST("/:orderID/cancel", h.CancelOrder)
		orders.POST("/:orderID/items/:itemID/cancel", h.CancelItem)
		orders.POST("/:orderID/items/:itemID/return", h.RequestReturn)
	}
}

// OrderItemResponse is the response body for an order line
type OrderItemResponse struct {
	ID                uint   `json:"id"`
	ProductID         uint   `json:"product_id"`
	Size              string `json:"size"`
	Quantity          int64  `json:"quantity"`
	SalePrice         int64  `json:"sale_price"`
	TotalSalePrice    int64  `json:"total_sale_price"`
	Status            string `json:"status"`
	ReturnStatus      string `json:"return_status,omitempty"`
	ReturnReason      string `json:"return_reason,omitempty"`
	DeliveryDate      string `json:"delivery_date,omitempty"`
}

// OrderResponse is the response body for order operations
type OrderResponse struct {
	OrderID           string              `json:"order_id"`
	UserID            uint                `json:"user_id"`
	Items             []OrderItemResponse `json:"items"`
	TotalRegularPrice int64               `json:"total_regular_price"`
	TotalDiscount     int64               `json:"total_discount"`
	CouponDiscount    int64               `json:"coupon_discount"`
	FinalAmount       int64               `json:"final_amount"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	Cancelled         bool                `json:"cancelled"`
	CreatedAt         string              `json:"created_at"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, it := range order.Items {
		items[i] = OrderItemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			Size:           it.Size,
			Quantity:       it.Quantity,
			SalePrice:      it.SalePrice,
			TotalSalePrice: it.TotalSalePrice,
			Status:         string(it.Status),
		}
		if it.ReturnRequest != nil {
			items[i].ReturnStatus = string(it.ReturnRequest.Status)
			items[i].ReturnReason = it.ReturnRequest.Reason
		}
		if it.DeliveryDate != nil {
			items[i].DeliveryDate = it.DeliveryDate.Format(time.RFC3339)
		}
	}

	return OrderResponse{
		OrderID:           order.OrderID,
		UserID:            order.UserID,
		Items:             items,
		TotalRegularPrice: order.TotalRegularPrice,
		TotalDiscount:     order.TotalDiscount,
		CouponDiscount:    order.CouponDiscount,
		FinalAmount:       order.FinalAmount,
		PaymentMethod:     string(order.PaymentMethod),
		PaymentStatus:     string(order.PaymentStatus),
		Cancelled:         order.Cancelled,
		CreatedAt:         order.CreatedAt.Format(time.RFC3339),
	}
}

func itemIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("itemID"), 10, 32)
	if err != nil {
		return 0, errors.NewValidation("invalid item id", nil)
	}
	return uint(id), nil
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	orders, err := h.useCase.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toOrderResponse(order)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     responses,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetOrder handles GET /orders/:orderID
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	order, err := h.useCase.GetOrder(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.Error(err)
		return
	}
	if order.UserID != userID {
		c.Error(errors.NewNotFound("order", c.Param("orderID")))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CancelOrder handles POST /orders/:orderID/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.useCase.CancelOrder(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CancelItem handles POST /orders/:orderID/items/:itemID/cancel
func (h *OrderHandler) CancelItem(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	order, err := h.useCase.CancelItem(c.Request.Context(), c.Param("orderID"), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RequestReturnRequest is the request body for requesting a return
type RequestReturnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestReturn handles POST /orders/:orderID/items/:itemID/return
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req RequestReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.useCase.RequestReturn(c.Request.Context(), c.Param("orderID"), itemID, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
