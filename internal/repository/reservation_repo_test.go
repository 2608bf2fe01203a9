package repository_test

import (
	"context"
	"testing"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
	"filmrental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEquipment(t *testing.T, store *repository.Store, name string, serials ...string) (*domain.EquipmentType, []*domain.Asset) {
	t.Helper()
	ctx := context.Background()
	eq := domain.NewEquipmentType(name, 1)
	eq.TotalQuantity = len(serials)
	require.NoError(t, store.Equipment.Create(ctx, eq))

	var assets []*domain.Asset
	for _, s := range serials {
		a := &domain.Asset{EquipmentID: eq.ID, SerialNumber: s, Status: domain.AssetAvailable}
		require.NoError(t, store.Assets.Create(ctx, a))
		assets = append(assets, a)
	}
	return eq, assets
}

func newReservation(status domain.ReservationStatus, eqID int64, qty int, assets ...int64) *domain.Reservation {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Reservation{
		UserID:     "student-1",
		UserName:   "Lee",
		LeaderName: "Lee",
		Status:     status,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 2),
		Purpose:    "thesis film",
		Items: []domain.ReservationItem{
			{EquipmentID: eqID, Name: "FX3", Quantity: qty, AssignedAssets: assets},
		},
	}
}

func TestReservationRepository_CreateAndLoad(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, assets := seedEquipment(t, store, "FX3", "A1", "A2", "A3")

	res := newReservation(domain.ReservationApproved, eq.ID, 3, assets[2].ID, assets[0].ID)
	require.NoError(t, store.Reservations.Create(ctx, res))
	assert.Equal(t, domain.ReservationNumber(res.StartDate, res.ID), res.ReservationNumber)

	got, err := store.Reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, []int64{assets[2].ID, assets[0].ID}, got.Items[0].AssignedAssets, "assignment order is kept")
	assert.True(t, res.StartDate.Equal(got.StartDate))

	_, err = store.Reservations.GetByID(ctx, res.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationRepository_EmptyAssignmentsAreNonNil(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, _ := seedEquipment(t, store, "FX3", "A1")

	res := newReservation(domain.ReservationPending, eq.ID, 1)
	require.NoError(t, store.Reservations.Create(ctx, res))

	got, err := store.Reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Items[0].AssignedAssets)
	assert.Empty(t, got.Items[0].AssignedAssets)
}

func TestReservationRepository_FindHoldersOnlyActive(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, assets := seedEquipment(t, store, "FX3", "A1", "A2", "A3")

	approved := newReservation(domain.ReservationApproved, eq.ID, 1, assets[0].ID)
	pending := newReservation(domain.ReservationPending, eq.ID, 1, assets[1].ID)
	returned := newReservation(domain.ReservationReturned, eq.ID, 1, assets[2].ID)
	for _, r := range []*domain.Reservation{approved, pending, returned} {
		require.NoError(t, store.Reservations.Create(ctx, r))
	}

	ids := []int64{assets[0].ID, assets[1].ID, assets[2].ID}
	holders, err := store.Reservations.FindHolders(ctx, ids, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{assets[0].ID: approved.ID}, holders)

	holders, err = store.Reservations.FindHolders(ctx, ids, approved.ID)
	require.NoError(t, err)
	assert.Empty(t, holders)

	occupied, err := store.Reservations.OccupiedAssets(ctx, eq.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{assets[0].ID}, occupied)
}

func TestReservationRepository_Occupancy(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, _ := seedEquipment(t, store, "FX3", "A1", "A2")

	require.NoError(t, store.Reservations.Create(ctx, newReservation(domain.ReservationPending, eq.ID, 2)))
	require.NoError(t, store.Reservations.Create(ctx, newReservation(domain.ReservationCancelled, eq.ID, 1)))

	rows, err := store.Reservations.Occupancy(ctx, eq.ID, domain.BlockingStatuses)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)
	assert.Equal(t, "pending", rows[0].Status)
}

func TestAssetRepository_DuplicateSerialIsConflict(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, _ := seedEquipment(t, store, "FX3", "A1")

	err := store.Assets.Create(ctx, &domain.Asset{EquipmentID: eq.ID, SerialNumber: "A1", Status: domain.AssetAvailable})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// blank serials never collide
	require.NoError(t, store.Assets.Create(ctx, &domain.Asset{EquipmentID: eq.ID, Status: domain.AssetAvailable}))
	require.NoError(t, store.Assets.Create(ctx, &domain.Asset{EquipmentID: eq.ID, Status: domain.AssetAvailable}))
}

func TestEquipmentRepository_DeleteCascades(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, assets := seedEquipment(t, store, "FX3", "A1", "A2")
	require.NoError(t, store.Assets.AppendHistory(ctx, &domain.AssetHistory{AssetID: assets[0].ID, Action: domain.AssetActionRented}))
	other, kept := seedEquipment(t, store, "Tripod", "T1")
	pending := newReservation(domain.ReservationPending, eq.ID, 2, assets[0].ID, assets[1].ID)
	pending.Items = append(pending.Items, domain.ReservationItem{EquipmentID: other.ID, Name: "Tripod", Quantity: 1, AssignedAssets: []int64{kept[0].ID}})
	require.NoError(t, store.Reservations.Create(ctx, pending))

	require.NoError(t, store.Equipment.Delete(ctx, eq.ID))

	_, err := store.Assets.GetByID(ctx, assets[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	history, err := store.Assets.History(ctx, assets[0].ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	got, err := store.Reservations.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	for _, it := range got.Items {
		if it.EquipmentID == eq.ID {
			assert.Empty(t, it.AssignedAssets, "pre-picks of deleted assets are dropped")
		} else {
			assert.Equal(t, []int64{kept[0].ID}, it.AssignedAssets)
		}
	}
}

func TestAssetRepository_DeleteDropsPrePicks(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	eq, assets := seedEquipment(t, store, "FX3", "A1", "A2")
	pending := newReservation(domain.ReservationPending, eq.ID, 2, assets[1].ID, assets[0].ID)
	require.NoError(t, store.Reservations.Create(ctx, pending))

	require.NoError(t, store.Assets.Delete(ctx, assets[1].ID))

	got, err := store.Reservations.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{assets[0].ID}, got.Items[0].AssignedAssets)
}

func TestStoreTransactionRollsBack(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx *repository.Store) error {
		require.NoError(t, tx.Equipment.Create(ctx, domain.NewEquipmentType("Aputure 600d", 2)))
		return domain.Validationf("boom")
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := store.Equipment.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}
