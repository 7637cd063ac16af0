package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/dealfinder/internal/db"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/migrations"
	"github.com/Simplici0/dealfinder/internal/tco"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "repository-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = migrations.Up(context.Background(), database)
	require.NoError(t, err)
	return database
}

func sampleAssumptions() tco.Assumptions {
	return tco.Assumptions{
		KWhCost:                0.10,
		LifespanYears:          5,
		ShippingCostTCPU:       10,
		ShippingCostNonTCPU:    35,
		RequiredRAMGB:          16,
		RAMUpgradeFlatCost:     30,
		RequiredStorageGB:      128,
		StorageUpgradeFlatCost: 15,
	}
}

func TestDefaultsLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewDefaults(openTestDB(t))

	_, found, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	inserted, err := repo.Ensure(ctx, sampleAssumptions())
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Ensure(ctx, tco.Assumptions{KWhCost: 9})
	require.NoError(t, err)
	assert.False(t, inserted, "existing singleton must not be replaced")

	got, found, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleAssumptions(), got)

	changed := sampleAssumptions()
	changed.KWhCost = 0.25
	updated, err := repo.Update(ctx, changed)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.Update(ctx, changed)
	require.NoError(t, err)
	assert.False(t, updated)

	got, _, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.25, got.KWhCost)
}

func TestDefaultsUpdateCreatesMissingRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewDefaults(openTestDB(t))

	updated, err := repo.Update(ctx, sampleAssumptions())
	require.NoError(t, err)
	assert.True(t, updated)

	_, found, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDefaultsStoreNormalizedValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewDefaults(openTestDB(t))

	a := sampleAssumptions()
	a.LifespanYears = 2.5
	a.RequiredStorageGB = 255.5
	_, err := repo.Update(ctx, a)
	require.NoError(t, err)

	got, found, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2.0, got.LifespanYears)
	assert.Equal(t, 255.0, got.RequiredStorageGB)

	changed, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDefaultsRejectInvalidValues(t *testing.T) {
	t.Parallel()
	repo := NewDefaults(openTestDB(t))

	bad := sampleAssumptions()
	bad.LifespanYears = math.NaN()
	_, err := repo.Update(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidAssumptions)
	assert.Contains(t, err.Error(), tco.FieldLifespanYears)
}

func TestSnapshotsUpsertAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewSnapshots(openTestDB(t))

	first := time.Unix(1_700_000_000, 0)
	repo.now = func() time.Time { return first }
	n, err := repo.Upsert(ctx, []listing.Derived{
		{Raw: listing.Raw{ItemID: "a", Title: "Dell OptiPlex", Price: listing.Float(79.99), CPUModel: "i5-6500T"}, TCO: listing.Float(120.5)},
		{Raw: listing.Raw{ItemID: "b", Title: "HP EliteDesk"}},
		{Raw: listing.Raw{Title: "no id"}},
		{Raw: listing.Raw{ItemID: "a", Title: "duplicate"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	repo.now = func() time.Time { return first.Add(time.Hour) }
	_, err = repo.Upsert(ctx, []listing.Derived{
		{Raw: listing.Raw{ItemID: "b", Title: "HP EliteDesk 800 G3", Price: listing.Float(95)}},
	})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "b", recent[0].ItemID)
	assert.Equal(t, "HP EliteDesk 800 G3", recent[0].Title)
	require.NotNil(t, recent[0].Price)
	assert.Equal(t, 95.0, *recent[0].Price)
	assert.Nil(t, recent[0].TCO)
	assert.Equal(t, first.Add(time.Hour).Unix(), recent[0].LastUpdated.Unix())

	assert.Equal(t, "a", recent[1].ItemID)
	assert.Equal(t, "Dell OptiPlex", recent[1].Title)
	require.NotNil(t, recent[1].TCO)
	assert.Equal(t, 120.5, *recent[1].TCO)

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSnapshotsUpsertLargeBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewSnapshots(openTestDB(t))

	items := make([]listing.Derived, 250)
	for i := range items {
		items[i] = listing.Derived{Raw: listing.Raw{ItemID: fmt.Sprintf("item-%d", i)}}
	}
	n, err := repo.Upsert(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
}
