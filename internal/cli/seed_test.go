package cli

import (
	"bytes"
	"context"
	"testing"

	"filmrental/internal/modules/history"
	"filmrental/internal/modules/inventory"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFixtureParses(t *testing.T) {
	fx, err := ParseFixture(defaultFixture)
	require.NoError(t, err)
	assert.NotEmpty(t, fx.Equipment)
	for _, e := range fx.Equipment {
		assert.NotEmpty(t, e.Serials, e.Name)
	}
}

func TestParseFixtureRejectsBadInput(t *testing.T) {
	_, err := ParseFixture([]byte("equipment: ["))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("equipment: []"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("equipment:\n  - category_id: 1\n"))
	assert.Error(t, err)
}

func TestSeedIsRepeatable(t *testing.T) {
	store := testutil.NewStore(t)
	svc := inventory.NewService(store, lock.NewLocal(), history.NewRecorder(), "ko")
	ctx := context.Background()

	fx, err := ParseFixture([]byte(`
equipment:
  - name: Sony FX3
    category_id: 1
    sort_order: 10
    serials: [FX3-001, FX3-002]
  - name: Slate
    category_id: 9
`))
	require.NoError(t, err)

	res, err := Seed(ctx, store, svc, fx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EquipmentCreated)
	assert.Equal(t, 2, res.AssetsCreated)

	eq, err := store.Equipment.GetByName(ctx, "Sony FX3")
	require.NoError(t, err)
	assert.Equal(t, 2, eq.TotalQuantity)
	assert.Equal(t, 10, eq.SortOrder)

	res, err = Seed(ctx, store, svc, fx)
	require.NoError(t, err)
	assert.Zero(t, res.EquipmentCreated)
	assert.Equal(t, 2, res.EquipmentSkipped)

	var out bytes.Buffer
	printSeedResult(&out, res)
	assert.Contains(t, out.String(), "equipment skipped: 2")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"migrate", "seed", "sweep", "token"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
