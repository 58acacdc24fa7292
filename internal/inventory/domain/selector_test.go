package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func lot(id string, qty int, expires time.Time) *domain.Lot {
	return &domain.Lot{
		ID:              id,
		ItemID:          "item-1",
		LotNumber:       "LOT-" + id,
		ManufactureDate: expires.AddDate(-2, 0, 0),
		ExpirationDate:  expires,
		Quantity:        qty,
	}
}

func deletedLot(id string, qty int, expires time.Time) *domain.Lot {
	l := lot(id, qty, expires)
	l.Lifecycle = domain.Deleted(now.Add(-time.Hour), "user-1")
	return l
}

func TestIsUsable(t *testing.T) {
	tests := []struct {
		name   string
		lot    *domain.Lot
		usable bool
	}{
		{"nil lot", nil, false},
		{"stocked and fresh", lot("a", 10, now.AddDate(0, 6, 0)), true},
		{"zero quantity", lot("a", 0, now.AddDate(0, 6, 0)), false},
		{"expired", lot("a", 10, now.AddDate(0, -1, 0)), false},
		{"expires exactly now", lot("a", 10, now), false},
		{"soft-deleted", deletedLot("a", 10, now.AddDate(0, 6, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, domain.IsUsable(tt.lot, now))
		})
	}
}

func TestBestLotToUse(t *testing.T) {
	t.Run("picks soonest expiring usable lot", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("late", 5, now.AddDate(1, 0, 0)),
			lot("soon", 5, now.AddDate(0, 1, 0)),
			lot("mid", 5, now.AddDate(0, 6, 0)),
		}

		best := domain.BestLotToUse(lots, now)
		require.NotNil(t, best)
		assert.Equal(t, "soon", best.ID)
	})

	t.Run("skips expired, empty and deleted lots", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("expired", 5, now.AddDate(0, -1, 0)),
			lot("empty", 0, now.AddDate(0, 1, 0)),
			deletedLot("deleted", 5, now.AddDate(0, 2, 0)),
			lot("usable", 5, now.AddDate(0, 9, 0)),
		}

		best := domain.BestLotToUse(lots, now)
		require.NotNil(t, best)
		assert.Equal(t, "usable", best.ID)
	})

	t.Run("ties keep the first lot encountered", func(t *testing.T) {
		expiry := now.AddDate(0, 3, 0)
		lots := []*domain.Lot{
			lot("first", 5, expiry),
			lot("second", 5, expiry),
		}

		best := domain.BestLotToUse(lots, now)
		require.NotNil(t, best)
		assert.Equal(t, "first", best.ID)
	})

	t.Run("returns nil when nothing is usable", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("expired", 5, now.AddDate(-1, 0, 0)),
			lot("empty", 0, now.AddDate(0, 1, 0)),
		}

		assert.Nil(t, domain.BestLotToUse(lots, now))
	})

	t.Run("returns nil for empty slice", func(t *testing.T) {
		assert.Nil(t, domain.BestLotToUse(nil, now))
	})
}

func TestCurrentStock(t *testing.T) {
	t.Run("sums non-deleted non-expired lots", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("a", 10, now.AddDate(0, 1, 0)),
			lot("b", 7, now.AddDate(0, 2, 0)),
			lot("c", 3, now.AddDate(1, 0, 0)),
		}

		assert.Equal(t, 20, domain.CurrentStock(lots, now))
	})

	t.Run("expired and deleted lots contribute nothing", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("fresh", 10, now.AddDate(0, 1, 0)),
			lot("expired", 50, now.AddDate(0, -1, 0)),
			deletedLot("deleted", 50, now.AddDate(0, 1, 0)),
		}

		assert.Equal(t, 10, domain.CurrentStock(lots, now))
	})

	t.Run("zero quantity lots are harmless", func(t *testing.T) {
		lots := []*domain.Lot{
			lot("empty", 0, now.AddDate(0, 1, 0)),
			lot("full", 4, now.AddDate(0, 1, 0)),
		}

		assert.Equal(t, 4, domain.CurrentStock(lots, now))
	})

	t.Run("no lots means zero stock", func(t *testing.T) {
		assert.Equal(t, 0, domain.CurrentStock(nil, now))
	})
}

func TestIsLowStock(t *testing.T) {
	assert.True(t, domain.IsLowStock(4, 5))
	assert.False(t, domain.IsLowStock(5, 5), "stock equal to minimum is not low")
	assert.False(t, domain.IsLowStock(6, 5))
	assert.False(t, domain.IsLowStock(0, 0))
}

func TestLifecycle(t *testing.T) {
	l := lot("a", 5, now.AddDate(0, 1, 0))
	assert.False(t, l.IsDeleted())

	l.Lifecycle = domain.Deleted(now, "user-9")
	require.True(t, l.IsDeleted())
	require.NotNil(t, l.DeletedAt)
	require.NotNil(t, l.DeletedBy)
	assert.Equal(t, "user-9", *l.DeletedBy)

	// Restore clears both markers together.
	l.Lifecycle = domain.Lifecycle{}
	assert.False(t, l.IsDeleted())
}

func TestLotIsActive(t *testing.T) {
	t.Run("active lot", func(t *testing.T) {
		assert.True(t, lot("a", 5, now.AddDate(0, 1, 0)).IsActive(now))
	})

	t.Run("empty lot is not active", func(t *testing.T) {
		assert.False(t, lot("a", 0, now.AddDate(0, 1, 0)).IsActive(now))
	})

	t.Run("expired lot is not active", func(t *testing.T) {
		assert.False(t, lot("a", 5, now.AddDate(0, -1, 0)).IsActive(now))
	})
}
