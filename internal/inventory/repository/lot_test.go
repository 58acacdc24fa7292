package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolmed/schoolmed-backend/internal/inventory/domain"
	"github.com/schoolmed/schoolmed-backend/internal/inventory/repository"
	"github.com/schoolmed/schoolmed-backend/pkg/errors"
	"github.com/schoolmed/schoolmed-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	defer testutil.TerminateContainer(ctx)

	os.Exit(m.Run())
}

// seedItem inserts a stock item for lots to hang off of
func seedItem(t *testing.T, ctx context.Context, opts ...func(*domain.StockItem)) *domain.StockItem {
	t.Helper()

	item := suite.Fixtures.StockItem(opts...)
	require.NoError(t, repository.NewItemRepository(suite.DB).Create(ctx, item))
	return item
}

func seedLot(t *testing.T, ctx context.Context, repo *repository.LotRepository, itemID string, opts ...func(*domain.Lot)) *domain.Lot {
	t.Helper()

	lot := suite.Fixtures.Lot(itemID, opts...)
	require.NoError(t, repo.Create(ctx, lot))
	return lot
}

func TestLotRepository_Create(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)

	lot := suite.Fixtures.Lot(item.ID, testutil.WithQuantity(40))
	err := repo.Create(ctx, lot)
	require.NoError(t, err)

	assert.NotEmpty(t, lot.ID)
	assert.False(t, lot.CreatedAt.IsZero())
	assert.False(t, lot.UpdatedAt.IsZero())

	retrieved, err := repo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.LotNumber, retrieved.LotNumber)
	assert.Equal(t, 40, retrieved.Quantity)
	assert.True(t, retrieved.ExpirationDate.Equal(lot.ExpirationDate))
}

func TestLotRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)

	_, err := repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLotRepository_GetByID_ExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	lot := seedLot(t, ctx, repo, item.ID)

	affected, err := repo.SoftDeleteMany(ctx, []string{lot.ID}, time.Now(), uuid.New().String())
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	_, err = repo.GetByID(ctx, lot.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLotRepository_GetByIDs(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)

	live := seedLot(t, ctx, repo, item.ID)
	deleted := seedLot(t, ctx, repo, item.ID)
	_, err := repo.SoftDeleteMany(ctx, []string{deleted.ID}, time.Now(), uuid.New().String())
	require.NoError(t, err)

	t.Run("excludes deleted by default", func(t *testing.T) {
		lots, err := repo.GetByIDs(ctx, []string{live.ID, deleted.ID}, false)
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, live.ID, lots[0].ID)
	})

	t.Run("includes deleted when asked", func(t *testing.T) {
		lots, err := repo.GetByIDs(ctx, []string{live.ID, deleted.ID}, true)
		require.NoError(t, err)
		assert.Len(t, lots, 2)
	})

	t.Run("empty id list", func(t *testing.T) {
		lots, err := repo.GetByIDs(ctx, nil, false)
		require.NoError(t, err)
		assert.Empty(t, lots)
	})
}

func TestLotRepository_ListByItem(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	other := seedItem(t, ctx)

	first := seedLot(t, ctx, repo, item.ID)
	second := seedLot(t, ctx, repo, item.ID)
	seedLot(t, ctx, repo, other.ID)

	lots, err := repo.ListByItem(ctx, item.ID, false)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, first.ID, lots[0].ID)
	assert.Equal(t, second.ID, lots[1].ID)
}

func TestLotRepository_LotNumberExists(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	medication := seedItem(t, ctx, testutil.WithKind(domain.KindMedication))
	supply := seedItem(t, ctx, testutil.WithKind(domain.KindSupply))

	lot := seedLot(t, ctx, repo, medication.ID, testutil.WithLotNumber("IBU-2026-01"))
	seedLot(t, ctx, repo, supply.ID, testutil.WithLotNumber("BAND-2026-01"))

	t.Run("same number same kind", func(t *testing.T) {
		exists, err := repo.LotNumberExists(ctx, domain.KindMedication, "IBU-2026-01", uuid.New().String())
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("same number other kind", func(t *testing.T) {
		exists, err := repo.LotNumberExists(ctx, domain.KindMedication, "BAND-2026-01", uuid.New().String())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("excludes the lot itself", func(t *testing.T) {
		exists, err := repo.LotNumberExists(ctx, domain.KindMedication, "IBU-2026-01", lot.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestLotRepository_Update(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	lot := seedLot(t, ctx, repo, item.ID, testutil.WithQuantity(10))

	lot.LotNumber = "REVISED-01"
	lot.Quantity = 25
	require.NoError(t, repo.Update(ctx, lot))

	retrieved, err := repo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, "REVISED-01", retrieved.LotNumber)
	assert.Equal(t, 25, retrieved.Quantity)
}

func TestLotRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	lot := suite.Fixtures.Lot(item.ID)

	err := repo.Update(ctx, lot)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLotRepository_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	lot := seedLot(t, ctx, repo, item.ID, testutil.WithQuantity(100))

	require.NoError(t, repo.UpdateQuantity(ctx, lot.ID, 0))

	retrieved, err := repo.GetByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, retrieved.Quantity)
}

func TestLotRepository_Consume(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	lot := seedLot(t, ctx, repo, item.ID, testutil.WithQuantity(10))

	t.Run("decrements when enough stock", func(t *testing.T) {
		affected, err := repo.Consume(ctx, lot.ID, 4)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		retrieved, err := repo.GetByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, retrieved.Quantity)
	})

	t.Run("refuses to overdraw", func(t *testing.T) {
		affected, err := repo.Consume(ctx, lot.ID, 7)
		require.NoError(t, err)
		assert.EqualValues(t, 0, affected)

		retrieved, err := repo.GetByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, retrieved.Quantity)
	})

	t.Run("can drain exactly to zero", func(t *testing.T) {
		affected, err := repo.Consume(ctx, lot.ID, 6)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		retrieved, err := repo.GetByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, retrieved.Quantity)
	})
}

func TestLotRepository_ListExpiring(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	now := time.Now()

	soon := seedLot(t, ctx, repo, item.ID, testutil.WithExpiration(now.AddDate(0, 0, 7)))
	seedLot(t, ctx, repo, item.ID, testutil.WithExpiration(now.AddDate(1, 0, 0)))
	seedLot(t, ctx, repo, item.ID,
		testutil.WithExpiration(now.AddDate(0, 0, 5)), testutil.WithQuantity(0))

	expired := suite.Fixtures.Lot(item.ID)
	expired.ManufactureDate = now.AddDate(-1, 0, 0)
	expired.ExpirationDate = now.AddDate(0, 0, -1)
	require.NoError(t, repo.Create(ctx, expired))

	lots, err := repo.ListExpiring(ctx, now, 30)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, soon.ID, lots[0].ID)
}

func TestLotRepository_SoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	a := seedLot(t, ctx, repo, item.ID)
	b := seedLot(t, ctx, repo, item.ID)

	by := uuid.New().String()
	affected, err := repo.SoftDeleteMany(ctx, []string{a.ID, b.ID}, time.Now(), by)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	// Deleting again touches nothing
	affected, err = repo.SoftDeleteMany(ctx, []string{a.ID, b.ID}, time.Now(), by)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	deleted, err := repo.GetByIDs(ctx, []string{a.ID}, true)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.NotNil(t, deleted[0].DeletedAt)
	require.NotNil(t, deleted[0].DeletedBy)
	assert.Equal(t, by, *deleted[0].DeletedBy)

	affected, err = repo.RestoreMany(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	restored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Nil(t, restored.DeletedBy)
	assert.Equal(t, a.Quantity, restored.Quantity)
}

func TestLotRepository_PermanentDeleteMany(t *testing.T) {
	ctx := context.Background()
	suite.Truncate(t, ctx, "lots", "stock_items")

	repo := repository.NewLotRepository(suite.DB)
	item := seedItem(t, ctx)
	a := seedLot(t, ctx, repo, item.ID)
	b := seedLot(t, ctx, repo, item.ID)

	affected, err := repo.PermanentDeleteMany(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	_, err = repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	gone, err := repo.GetByIDs(ctx, []string{a.ID}, true)
	require.NoError(t, err)
	assert.Empty(t, gone)

	_, err = repo.GetByID(ctx, b.ID)
	assert.NoError(t, err)
}
