package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/modules/allocation"
	"filmrental/internal/modules/availability"
	"filmrental/internal/modules/history"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"
	"filmrental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) Notify(ctx context.Context, msg domain.NotificationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func ofType(typ domain.NotificationType, userID string) interface{} {
	return mock.MatchedBy(func(m domain.NotificationMessage) bool {
		return m.Type == typ && m.UserID == userID
	})
}

type env struct {
	store   *repository.Store
	engine  *allocation.Engine
	service *Service
	notifs  *MockNotificationSender
	camera  *domain.EquipmentType
	assets  []*domain.Asset
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := testutil.NewStore(t)
	engine := allocation.NewEngine(store, lock.NewLocal(), history.NewRecorder())
	notifs := new(MockNotificationSender)
	notifs.On("Notify", mock.Anything, mock.Anything).Return(nil)

	e := &env{
		store:   store,
		engine:  engine,
		service: NewService(store, engine, availability.NewCalculator(store, 366), notifs),
		notifs:  notifs,
	}
	e.service.now = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	e.camera = domain.NewEquipmentType("Sony FX3", 1)
	e.camera.TotalQuantity = 3
	require.NoError(t, store.Equipment.Create(ctx, e.camera))
	for _, s := range []string{"FX3-001", "FX3-002", "FX3-003"} {
		a := &domain.Asset{EquipmentID: e.camera.ID, SerialNumber: s, Status: domain.AssetAvailable}
		require.NoError(t, store.Assets.Create(ctx, a))
		e.assets = append(e.assets, a)
	}
	return e
}

func (e *env) create(t *testing.T, actor domain.ActorIdentity, qty int) *domain.Reservation {
	t.Helper()
	r, err := e.service.Create(context.Background(), actor, CreateReservationRequest{
		StartDate:  "2025-03-10",
		EndDate:    "2025-03-12",
		Purpose:    "graduation film",
		LeaderName: "Kim Director",
		Items:      []ItemInput{{EquipmentID: e.camera.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return r
}

func (e *env) assetStatus(t *testing.T, i int) domain.AssetStatus {
	t.Helper()
	a, err := e.store.Assets.GetByID(context.Background(), e.assets[i].ID)
	require.NoError(t, err)
	return a.Status
}

func TestCreateReservation(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, testutil.Student, 2)

	assert.Equal(t, domain.ReservationPending, r.Status)
	assert.Equal(t, domain.ReservationNumber(r.StartDate, r.ID), r.ReservationNumber)
	assert.Contains(t, r.ReservationNumber, "20250310-")
	assert.Equal(t, testutil.Student.ID, r.UserID)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Sony FX3", r.Items[0].Name)
	assert.NotNil(t, r.Items[0].AssignedAssets)

	e.notifs.AssertCalled(t, "Notify", mock.Anything, ofType(domain.NotifReservationCreated, domain.AdminAudience))
}

func TestCreateReservationValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := func() CreateReservationRequest {
		return CreateReservationRequest{
			StartDate: "2025-03-10",
			EndDate:   "2025-03-12",
			Purpose:   "graduation film",
			Items:     []ItemInput{{EquipmentID: e.camera.ID, Quantity: 1}},
		}
	}

	req := base()
	req.EndDate = "2025-03-09"
	_, err := e.service.Create(ctx, testutil.Student, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = base()
	req.Items = append(req.Items, ItemInput{EquipmentID: e.camera.ID, Quantity: 1})
	_, err = e.service.Create(ctx, testutil.Student, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = base()
	req.Purpose = ""
	_, err = e.service.Create(ctx, testutil.Student, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = base()
	req.Items = []ItemInput{{EquipmentID: 999, Quantity: 1}}
	_, err = e.service.Create(ctx, testutil.Student, req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRefusesOverbooking(t *testing.T) {
	e := newEnv(t)
	e.create(t, testutil.Student, 2)

	_, err := e.service.Create(context.Background(), testutil.Other, CreateReservationRequest{
		StartDate: "2025-03-12",
		EndDate:   "2025-03-14",
		Purpose:   "music video",
		Items:     []ItemInput{{EquipmentID: e.camera.ID, Quantity: 2}},
	})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "UNAVAILABLE", conflict.Code)

	// the day after the first reservation ends there is room again
	_, err = e.service.Create(context.Background(), testutil.Other, CreateReservationRequest{
		StartDate: "2025-03-13",
		EndDate:   "2025-03-14",
		Purpose:   "music video",
		Items:     []ItemInput{{EquipmentID: e.camera.ID, Quantity: 3}},
	})
	assert.NoError(t, err)
}

func TestHiddenEquipmentOnlyForAdmins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.camera.IsVisible = false
	require.NoError(t, e.store.Equipment.Update(ctx, e.camera))

	req := CreateReservationRequest{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-10",
		Purpose:   "department shoot",
		Items:     []ItemInput{{EquipmentID: e.camera.ID, Quantity: 1}},
	}
	_, err := e.service.Create(ctx, testutil.Student, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.service.Create(ctx, testutil.Admin, req)
	assert.NoError(t, err)
}

func TestFullLifecycleWithDamagedReturn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, testutil.Student, 2)

	_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
		{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[0].ID, e.assets[1].ID}},
	})
	require.NoError(t, err)

	out, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationApproved, "")
	require.NoError(t, err)
	assert.NotNil(t, out.Reservation.ApprovedAt)

	out, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationRented, "")
	require.NoError(t, err)
	assert.NotNil(t, out.Reservation.RentedAt)
	assert.Equal(t, domain.AssetRented, e.assetStatus(t, 0))
	assert.Equal(t, domain.AssetRented, e.assetStatus(t, 1))

	out, err = e.service.ReturnAssets(ctx, testutil.Admin, r.ID, []allocation.ReturnEntry{
		{AssetID: e.assets[1].ID, Condition: domain.ConditionMissingParts, Notes: "battery door missing"},
	}, "returned late")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReturned, out.Reservation.Status)
	assert.Equal(t, "returned late", out.Reservation.ReturnNote)
	assert.True(t, out.Reservation.Items[0].Returned)
	require.Len(t, out.RepairCases, 1)
	assert.Equal(t, domain.DamageMissingParts, out.RepairCases[0].DamageType)

	assert.Equal(t, domain.AssetAvailable, e.assetStatus(t, 0))
	assert.Equal(t, domain.AssetMaintenance, e.assetStatus(t, 1))

	lines, err := e.store.Assets.History(ctx, e.assets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "returned late", lines[len(lines)-1].ReturnNotes)

	for _, typ := range []domain.NotificationType{
		domain.NotifReservationApproved, domain.NotifReservationRented, domain.NotifReservationReturned,
	} {
		e.notifs.AssertCalled(t, "Notify", mock.Anything, ofType(typ, testutil.Student.ID))
	}
	e.notifs.AssertCalled(t, "Notify", mock.Anything, ofType(domain.NotifRepairCreated, domain.AdminAudience))
}

func TestReturnLeavesNoAssetRented(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, testutil.Student, 3)
	_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
		{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[0].ID, e.assets[1].ID, e.assets[2].ID}},
	})
	require.NoError(t, err)
	for _, st := range []domain.ReservationStatus{domain.ReservationApproved, domain.ReservationRented, domain.ReservationReturned} {
		_, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, st, "")
		require.NoError(t, err)
	}
	for i := range e.assets {
		assert.NotEqual(t, domain.AssetRented, e.assetStatus(t, i))
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rejected := e.create(t, testutil.Student, 1)
	_, err := e.service.ChangeStatus(ctx, testutil.Admin, rejected.ID, domain.ReservationRejected, "")
	require.NoError(t, err)

	cancelled := e.create(t, testutil.Student, 1)
	_, err = e.service.Cancel(ctx, testutil.Student, cancelled.ID)
	require.NoError(t, err)

	all := []domain.ReservationStatus{
		domain.ReservationPending, domain.ReservationApproved, domain.ReservationRented,
		domain.ReservationReturned, domain.ReservationRejected, domain.ReservationCancelled,
	}
	for _, r := range []*domain.Reservation{rejected, cancelled} {
		for _, to := range all {
			_, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, to, "")
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%d -> %s", r.ID, to)
		}
	}

	pending := e.create(t, testutil.Student, 1)
	_, err = e.service.ChangeStatus(ctx, testutil.Admin, pending.ID, domain.ReservationRented, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestStudentCancellationRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, testutil.Student, 1)

	_, err := e.service.Cancel(ctx, testutil.Other, r.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.service.ChangeStatus(ctx, testutil.Student, r.ID, domain.ReservationApproved, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationApproved, "")
	require.NoError(t, err)
	_, err = e.service.Cancel(ctx, testutil.Student, r.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden, "approved reservations are cancelled by admins")

	out, err := e.service.Cancel(ctx, testutil.Admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, out.Reservation.Status)
	assert.NotNil(t, out.Reservation.CancelledAt)
	e.notifs.AssertCalled(t, "Notify", mock.Anything, ofType(domain.NotifReservationCancelled, testutil.Student.ID))
}

func TestCancelRentedReleasesAssets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, testutil.Student, 1)
	_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
		{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[0].ID}},
	})
	require.NoError(t, err)
	_, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationApproved, "")
	require.NoError(t, err)
	_, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationRented, "")
	require.NoError(t, err)

	out, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationCancelled, "")
	require.NoError(t, err)
	assert.Empty(t, out.Reservation.Items[0].AssignedAssets)
	assert.Equal(t, domain.AssetAvailable, e.assetStatus(t, 0))
}

func TestApproveRefusesAssetHeldElsewhere(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.create(t, testutil.Student, 1)
	second := e.create(t, testutil.Other, 1)

	for _, r := range []*domain.Reservation{first, second} {
		_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
			{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[0].ID}},
		})
		require.NoError(t, err, "pending reservations may pre-pick the same asset")
	}
	_, err := e.service.ChangeStatus(ctx, testutil.Admin, first.ID, domain.ReservationApproved, "")
	require.NoError(t, err)

	_, err = e.service.ChangeStatus(ctx, testutil.Admin, second.ID, domain.ReservationApproved, "")
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, []int64{e.assets[0].ID}, conflict.AssetIDs)

	got, err := e.store.Reservations.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, got.Status)
}

func TestUpdateItemsTrimsAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	lens := domain.NewEquipmentType("Canon CN-E 50mm", 2)
	lens.TotalQuantity = 2
	require.NoError(t, e.store.Equipment.Create(ctx, lens))

	r := e.create(t, testutil.Student, 3)
	_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
		{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[2].ID, e.assets[0].ID, e.assets[1].ID}},
	})
	require.NoError(t, err)

	got, err := e.service.UpdateItems(ctx, testutil.Student, r.ID, []ItemInput{
		{EquipmentID: lens.ID, Quantity: 1},
		{EquipmentID: e.camera.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Canon CN-E 50mm", got.Items[0].Name)
	assert.Empty(t, got.Items[0].AssignedAssets)
	assert.Equal(t, []int64{e.assets[2].ID}, got.Items[1].AssignedAssets)

	_, err = e.service.UpdateItems(ctx, testutil.Student, r.ID, []ItemInput{{EquipmentID: lens.ID, Quantity: 3}})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.service.UpdateItems(ctx, testutil.Other, r.ID, []ItemInput{{EquipmentID: lens.ID, Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationApproved, "")
	require.NoError(t, err)
	_, err = e.service.UpdateItems(ctx, testutil.Student, r.ID, []ItemInput{{EquipmentID: lens.ID, Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationRented, "")
	require.NoError(t, err)
	_, err = e.service.UpdateItems(ctx, testutil.Admin, r.ID, []ItemInput{{EquipmentID: lens.ID, Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRevertTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, testutil.Student, 1)
	_, err := e.engine.Assign(ctx, testutil.Admin, r.ID, []allocation.Assignment{
		{EquipmentID: e.camera.ID, AssetIDs: []int64{e.assets[0].ID}},
	})
	require.NoError(t, err)
	for _, st := range []domain.ReservationStatus{domain.ReservationApproved, domain.ReservationRented} {
		_, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, st, "")
		require.NoError(t, err)
	}

	out, err := e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationApproved, "")
	require.NoError(t, err)
	assert.Nil(t, out.Reservation.RentedAt)
	assert.Equal(t, domain.AssetAvailable, e.assetStatus(t, 0))

	out, err = e.service.ChangeStatus(ctx, testutil.Admin, r.ID, domain.ReservationPending, "")
	require.NoError(t, err)
	assert.Nil(t, out.Reservation.ApprovedAt)
	assert.Equal(t, []int64{e.assets[0].ID}, out.Reservation.Items[0].AssignedAssets)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	e := newEnv(t)
	failing := new(MockNotificationSender)
	failing.On("Notify", mock.Anything, mock.Anything).Return(errors.New("inbox down"))
	e.service.notifs = failing

	r := e.create(t, testutil.Student, 1)
	_, err := e.service.ChangeStatus(context.Background(), testutil.Admin, r.ID, domain.ReservationApproved, "")
	assert.NoError(t, err)
	failing.AssertNumberOfCalls(t, "Notify", 2)
}

func TestListAndGet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := e.create(t, testutil.Student, 1)
	e.create(t, testutil.Other, 1)

	out, err := e.service.ListMine(ctx, testutil.Student, 1, 20)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, mine.ID, out.Items[0].ID)

	_, err = e.service.List(ctx, testutil.Student, repository.ReservationFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := e.service.List(ctx, testutil.Admin, repository.ReservationFilter{Status: domain.ReservationPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	_, err = e.service.Get(ctx, testutil.Other, mine.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	got, err := e.service.Get(ctx, testutil.Admin, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ReservationNumber, got.ReservationNumber)
}

func TestSweepStale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old := e.create(t, testutil.Student, 1)
	approved := e.create(t, testutil.Other, 1)
	_, err := e.service.ChangeStatus(ctx, testutil.Admin, approved.ID, domain.ReservationApproved, "")
	require.NoError(t, err)

	n, err := e.service.SweepStale(ctx, time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.store.Reservations.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)

	got, err = e.store.Reservations.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationApproved, got.Status)
}
