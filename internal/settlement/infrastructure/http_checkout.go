package infrastructure

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"settlement/internal/settlement/application"
	"settlement/internal/settlement/domain"
	"settlement/pkg/errors"
	"settlement/pkg/middleware"
)

// userHeader carries the authenticated user id, injected by the edge proxy.
// Session handling itself lives upstream.
const userHeader = "X-User-ID"

func userIDFrom(c *gin.Context) (uint, error) {
	raw := c.GetHeader(userHeader)
	if raw == "" {
		return 0, errors.NewUnauthorized("missing user identity")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.NewUnauthorized("invalid user identity")
	}
	return uint(id), nil
}

// CheckoutHandler handles HTTP requests for checkout and payment verification
type CheckoutHandler struct {
	checkout *application.CheckoutUseCase
	coupons  *application.CouponUseCase
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *application.CheckoutUseCase, coupons *application.CouponUseCase) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, coupons: coupons}
}

// RegisterRoutes registers the checkout routes
func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup) {
	checkout := r.Group("/checkout")
	{
		checkout.POST("", h.PlaceOrder)
		checkout.POST("/verify", h.VerifyPayment)
		checkout.POST("/retry", h.RetryPayment)
		checkout.POST("/coupon", h.ApplyCoupon)
		checkout.DELETE("/coupon/:id", h.RemoveCoupon)
	}
}

// PlaceOrderRequest is the request body for placing an order
type PlaceOrderRequest struct {
	AddressID     string `json:"address_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cashOnDelivery wallet gateway"`
}

// PlaceOrderResponse is the response body for a placed order
type PlaceOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentMethod    string `json:"payment_method"`
	PaymentStatus    string `json:"payment_status"`
	FinalAmount      int64  `json:"final_amount"`
	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	AmountMinorUnits int64  `json:"amount_minor_units,omitempty"`
}

// PlaceOrder handles POST /checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.checkout.PlaceOrder(c.Request.Context(), application.PlaceOrderInput{
		UserID:        userID,
		AddressID:     req.AddressID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": PlaceOrderResponse{
			OrderID:          output.Order.OrderID,
			PaymentMethod:    string(output.Order.PaymentMethod),
			PaymentStatus:    string(output.Order.PaymentStatus),
			FinalAmount:      output.Order.FinalAmount,
			GatewayOrderID:   output.GatewayOrderID,
			AmountMinorUnits: output.AmountMinorUnits,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// VerifyPaymentRequest is the signed gateway callback payload
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// VerifyPayment handles POST /checkout/verify
func (h *CheckoutHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.checkout.VerifyPayment(c.Request.Context(), application.VerifyPaymentInput{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"order_id":       output.Order.OrderID,
			"payment_status": string(output.Order.PaymentStatus),
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RetryPaymentRequest is the request body for retrying a gateway payment
type RetryPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// RetryPayment handles POST /checkout/retry
func (h *CheckoutHandler) RetryPayment(c *gin.Context) {
	var req RetryPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.checkout.RetryPayment(c.Request.Context(), application.RetryPaymentInput{
		OrderID: req.OrderID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": PlaceOrderResponse{
			OrderID:          output.Order.OrderID,
			PaymentMethod:    string(output.Order.PaymentMethod),
			PaymentStatus:    string(output.Order.PaymentStatus),
			FinalAmount:      output.Order.FinalAmount,
			GatewayOrderID:   output.GatewayOrderID,
			AmountMinorUnits: output.AmountMinorUnits,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ApplyCouponRequest is the request body for applying a coupon
type ApplyCouponRequest struct {
	CouponID uint `json:"coupon_id" binding:"required"`
}

// ApplyCoupon handles POST /checkout/coupon
func (h *CheckoutHandler) ApplyCoupon(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.coupons.Apply(c.Request.Context(), userID, req.CouponID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"discount_amount": output.DiscountAmount,
			"payable_amount":  output.PayableAmount,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// RemoveCoupon handles DELETE /checkout/coupon/:id
func (h *CheckoutHandler) RemoveCoupon(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Error(errors.NewValidation("invalid coupon id", nil))
		return
	}

	output, err := h.coupons.Remove(c.Request.Context(), userID, uint(couponID))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"discount_amount": output.DiscountAmount,
			"payable_amount":  output.PayableAmount,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
