package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"settlement/internal/settlement/application"
	"settlement/pkg/middleware"
)

// WalletHandler handles HTTP requests for the shopper's wallet
type WalletHandler struct {
	useCase *application.WalletUseCase
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(useCase *application.WalletUseCase) *WalletHandler {
	return &WalletHandler{useCase: useCase}
}

// RegisterRoutes registers the wallet routes
func (h *WalletHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/wallet", h.GetWallet)
}

// WalletTransactionResponse is the response body for a ledger entry
type WalletTransactionResponse struct {
	ID      uint   `json:"id"`
	Type    string `json:"type"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason"`
	OrderID string `json:"order_id,omitempty"`
	Date    string `json:"date"`
}

// GetWallet handles GET /wallet. Transactions are paged newest first.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.useCase.GetWallet(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}

	total := len(output.Wallet.Transactions)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	transactions := make([]WalletTransactionResponse, 0, end-start)
	for _, tx := range output.Wallet.Transactions[start:end] {
		transactions = append(transactions, WalletTransactionResponse{
			ID:      tx.ID,
			Type:    string(tx.Type),
			Amount:  tx.Amount,
			Reason:  tx.Reason,
			OrderID: tx.OrderID,
			Date:    tx.Date.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"balance":      output.Wallet.Balance,
			"transactions": transactions,
			"page":         page,
			"limit":        limit,
			"total":        total,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
