package domain

// All monetary amounts are whole currency units held in int64. Derived
// amounts round exactly once, at the final step of each calculation.

// ProportionalShare returns lineAmount/basisTotal of sharedAmount, rounded
// half-up. It spreads an order-level amount (the coupon discount) across
// lines, and reverses that spread during partial refunds, with one formula
// and one rounding rule. A zero basis yields a zero share.
func ProportionalShare(lineAmount, basisTotal, sharedAmount int64) int64 {
	if basisTotal <= 0 {
		return 0
	}
	return roundHalfUpQuotient(lineAmount*sharedAmount, basisTotal)
}

// roundHalfUpQuotient computes num/den rounded half-up for non-negative num
// and positive den, without going through floating point.
func roundHalfUpQuotient(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}

// PercentagePayable computes the payable amount for a percentage discount:
// floor(total * (100 - pct) / 100).
func PercentagePayable(total, pct int64) int64 {
	return total * (100 - pct) / 100
}
