package domain

// StockStatus is derived from a product's total quantity.
type StockStatus string

const (
	StockStatusIn  StockStatus = "In Stock"
	StockStatusOut StockStatus = "Out of Stock"
)

// StatusForQuantity returns the stock status for a total quantity.
func StatusForQuantity(total int64) StockStatus {
	if total <= 0 {
		return StockStatusOut
	}
	return StockStatusIn
}

// SizeVariant is one (size, available quantity) counter of a product.
type SizeVariant struct {
	Size     string
	Quantity int64
}

// ProductStock is the stock view of a product: per-size counters plus the
// derived total and status. Mutated only through the stock store.
type ProductStock struct {
	ProductID     uint
	Name          string
	Variants      []SizeVariant
	TotalQuantity int64
	Status        StockStatus
}

// Variant returns the counter for a size, or nil if the size does not exist.
func (p *ProductStock) Variant(size string) *SizeVariant {
	for i := range p.Variants {
		if p.Variants[i].Size == size {
			return &p.Variants[i]
		}
	}
	return nil
}

// StockIssue describes one cart line the pre-checkout validation had to
// drop or clamp.
type StockIssue struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	Dropped   bool   `json:"dropped"`
}
