package domain

// CartItem is one (product, size, quantity) line in a cart. Unit prices are
// copied from the product at add-to-cart time; line totals are derived.
type CartItem struct {
	ID                uint
	ProductID         uint
	Size              string
	Quantity          int64
	SalePrice         int64
	RegularPrice      int64
	TotalSalePrice    int64
	TotalRegularPrice int64
}

// Reprice sets a new quantity and recomputes the line totals from the unit
// prices. Used when checkout clamps a line to the available stock.
func (ci *CartItem) Reprice(quantity int64) {
	ci.Quantity = quantity
	ci.TotalSalePrice = quantity * ci.SalePrice
	ci.TotalRegularPrice = quantity * ci.RegularPrice
}

// Cart holds one user's open cart. The aggregate fields are always derived
// from the items via Recalculate, never mutated independently.
type Cart struct {
	ID                uint
	UserID            uint
	Items             []CartItem
	TotalQuantity     int64
	TotalSalePrice    int64
	TotalRegularPrice int64
	TotalDiscount     int64
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recalculate recomputes the aggregate totals from the current items. It is
// idempotent and must be called after any line mutation.
func (c *Cart) Recalculate() {
	var quantity, sale, regular int64
	for _, item := range c.Items {
		quantity += item.Quantity
		sale += item.TotalSalePrice
		regular += item.TotalRegularPrice
	}
	c.TotalQuantity = quantity
	c.TotalSalePrice = sale
	c.TotalRegularPrice = regular
	c.TotalDiscount = regular - sale
}

// RemoveItem drops the line for (productID, size) if present.
func (c *Cart) RemoveItem(productID uint, size string) {
	items := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID == productID && item.Size == size {
			continue
		}
		items = append(items, item)
	}
	c.Items = items
}
