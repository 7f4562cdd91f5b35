package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"settlement/internal/settlement/application"
	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	"settlement/pkg/errors"
	"settlement/pkg/middleware"
)

// AdminHandler handles the back-office routes: order fulfilment, return
// decisions, refunds and coupon management.
type AdminHandler struct {
	orders  *application.OrderUseCase
	coupons *application.CouponUseCase
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(orders *application.OrderUseCase, coupons *application.CouponUseCase) *AdminHandler {
	return &AdminHandler{orders: orders, coupons: coupons}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.GET("/orders", h.ListOrders)
		admin.PATCH("/orders/:orderID/items/:itemID/status", h.AdvanceItem)
		admin.POST("/orders/:orderID/items/:itemID/return/approve", h.ApproveReturn)
		admin.POST("/orders/:orderID/items/:itemID/return/reject", h.RejectReturn)
		admin.POST("/orders/:orderID/items/:itemID/refund", h.RefundReturn)
		admin.POST("/orders/:orderID/return/approve", h.ApproveAllReturns)

		admin.POST("/coupons", h.CreateCoupon)
		admin.GET("/coupons", h.ListCoupons)
		admin.DELETE("/coupons/:id", h.DeleteCoupon)
	}
}

// ListOrders handles GET /admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, total, err := h.orders.ListOrders(c.Request.Context(), ports.ListOrdersQuery{
		Page:   page,
		Limit:  limit,
		Status: domain.OrderItemStatus(c.Query("status")),
		Sort:   c.Query("sort"),
	})
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
		"total":    total,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// AdvanceItemRequest is the request body for moving a line forward
type AdvanceItemRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdvanceItem handles PATCH /admin/orders/:orderID/items/:itemID/status
func (h *AdminHandler) AdvanceItem(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req AdvanceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.orders.AdvanceItem(c.Request.Context(), c.Param("orderID"), itemID, domain.OrderItemStatus(req.Status))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ApproveReturn handles POST /admin/orders/:orderID/items/:itemID/return/approve
func (h *AdminHandler) ApproveReturn(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	order, err := h.orders.ApproveReturn(c.Request.Context(), c.Param("orderID"), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RejectReturn handles POST /admin/orders/:orderID/items/:itemID/return/reject
func (h *AdminHandler) RejectReturn(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	order, err := h.orders.RejectReturn(c.Request.Context(), c.Param("orderID"), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RefundReturn handles POST /admin/orders/:orderID/items/:itemID/refund
func (h *AdminHandler) RefundReturn(c *gin.Context) {
	itemID, err := itemIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.orders.RefundReturn(c.Request.Context(), c.Param("orderID"), itemID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"order":           toOrderResponse(output.Order),
			"refunded_amount": output.Amount,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ApproveAllReturns handles POST /admin/orders/:orderID/return/approve
func (h *AdminHandler) ApproveAllReturns(c *gin.Context) {
	order, err := h.orders.ApproveAllReturns(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CreateCouponRequest is the request body for creating a coupon
type CreateCouponRequest struct {
	Name            string `json:"name" binding:"required"`
	Code            string `json:"code" binding:"required"`
	StartDate       string `json:"start_date" binding:"required"`
	EndDate         string `json:"end_date" binding:"required"`
	OfferType       string `json:"offer_type" binding:"required,oneof=percentage flat"`
	OfferPercentage int64  `json:"offer_percentage"`
	FlatOffer       int64  `json:"flat_offer"`
	MinimumPrice    int64  `json:"minimum_price" binding:"required"`
}

// CouponResponse is the response body for coupon operations
type CouponResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	OfferType       string `json:"offer_type"`
	OfferPercentage int64  `json:"offer_percentage,omitempty"`
	FlatOffer       int64  `json:"flat_offer,omitempty"`
	MinimumPrice    int64  `json:"minimum_price"`
	IsListed        bool   `json:"is_listed"`
}

func toCouponResponse(coupon *domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:              coupon.ID,
		Name:            coupon.Name,
		Code:            coupon.Code,
		StartDate:       coupon.StartDate.Format("2006-01-02"),
		EndDate:         coupon.EndDate.Format("2006-01-02"),
		OfferType:       string(coupon.OfferType),
		OfferPercentage: coupon.OfferPercentage,
		FlatOffer:       coupon.FlatOffer,
		MinimumPrice:    coupon.MinimumPrice,
		IsListed:        coupon.IsListed,
	}
}

// CreateCoupon handles POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.Error(errors.NewValidation("invalid start date", nil))
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.Error(errors.NewValidation("invalid end date", nil))
		return
	}

	coupon, err := h.coupons.CreateCoupon(c.Request.Context(), application.CreateCouponInput{
		Name:            req.Name,
		Code:            req.Code,
		StartDate:       startDate,
		EndDate:         endDate,
		OfferType:       domain.OfferType(req.OfferType),
		OfferPercentage: req.OfferPercentage,
		FlatOffer:       req.FlatOffer,
		MinimumPrice:    req.MinimumPrice,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":     toCouponResponse(coupon),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ListCoupons handles GET /admin/coupons
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	coupons, total, err := h.coupons.ListCoupons(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	responses := make([]CouponResponse, len(coupons))
	for i, coupon := range coupons {
		responses[i] = toCouponResponse(coupon)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     responses,
		"total":    total,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// DeleteCoupon handles DELETE /admin/coupons/:id
func (h *AdminHandler) DeleteCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewValidation("invalid coupon id", nil))
		return
	}

	if err := h.coupons.DeleteCoupon(c.Request.Context(), uint(couponID)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "coupon deleted",
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
