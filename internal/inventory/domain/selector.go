package domain

import "time"

// IsUsable reports whether a lot can be dispensed from at now: it has
// remaining quantity, has not expired, and is not soft-deleted.
func IsUsable(lot *Lot, now time.Time) bool {
	if lot == nil {
		return false
	}
	return lot.Quantity > 0 && lot.ExpirationDate.After(now) && !lot.IsDeleted()
}

// BestLotToUse picks the usable lot with the earliest expiration date
// (first-expired-first-out). Ties keep the first lot encountered, so callers
// passing lots in creation order get a deterministic pick. Returns nil when
// no lot is usable.
func BestLotToUse(lots []*Lot, now time.Time) *Lot {
	var best *Lot
	for _, lot := range lots {
		if !IsUsable(lot, now) {
			continue
		}
		if best == nil || lot.ExpirationDate.Before(best.ExpirationDate) {
			best = lot
		}
	}
	return best
}

// CurrentStock sums the quantity of all non-deleted, non-expired lots.
// Zero-quantity lots contribute nothing and need no special casing.
func CurrentStock(lots []*Lot, now time.Time) int {
	total := 0
	for _, lot := range lots {
		if lot == nil || lot.IsDeleted() || lot.IsExpired(now) {
			continue
		}
		total += lot.Quantity
	}
	return total
}

// IsLowStock reports whether stock has fallen below the minimum.
// Stock equal to the minimum is not low.
func IsLowStock(currentStock, minimumStock int) bool {
	return currentStock < minimumStock
}
