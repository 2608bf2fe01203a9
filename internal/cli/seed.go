package cli

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/modules/inventory"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/equipment.yaml
var defaultFixture []byte

// Fixture is the seed file layout.
type Fixture struct {
	Equipment []FixtureEquipment `yaml:"equipment"`
}

type FixtureEquipment struct {
	Name        string   `yaml:"name"`
	CategoryID  int64    `yaml:"category_id"`
	Description string   `yaml:"description"`
	SortOrder   *int     `yaml:"sort_order"`
	GroupPrint  bool     `yaml:"group_print"`
	Serials     []string `yaml:"serials"`
}

// SeedResult counts what a seed run added.
type SeedResult struct {
	EquipmentCreated int
	EquipmentSkipped int
	AssetsCreated    int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load equipment and assets from a YAML fixture",
		Long: `Load equipment types and their serial-numbered assets from a YAML fixture.

Without --file the built-in starter inventory is used. Equipment that already
exists by name is skipped, so the command can be re-run safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := defaultFixture
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				raw = b
			}
			fx, err := ParseFixture(raw)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := repository.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			store := repository.NewStore(db)
			svc := inventory.NewService(store, lock.NewLocal(), history.NewRecorder(), cfg.CatalogLocale)

			res, err := Seed(cmd.Context(), store, svc, fx)
			if err != nil {
				return err
			}
			printSeedResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture file (defaults to the built-in inventory)")
	return cmd
}

// ParseFixture decodes and checks a fixture.
func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(fx.Equipment) == 0 {
		return nil, fmt.Errorf("fixture has no equipment")
	}
	for i, e := range fx.Equipment {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("fixture equipment #%d has no name", i+1)
		}
	}
	return &fx, nil
}

// Seed creates every fixture equipment type that does not exist yet, with its
// assets, as the system actor.
func Seed(ctx context.Context, store *repository.Store, svc *inventory.Service, fx *Fixture) (*SeedResult, error) {
	res := &SeedResult{}
	for _, e := range fx.Equipment {
		_, err := store.Equipment.GetByName(ctx, strings.TrimSpace(e.Name))
		if err == nil {
			res.EquipmentSkipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}

		eq, err := svc.CreateEquipment(ctx, domain.SystemActor, inventory.CreateEquipmentRequest{
			Name:        e.Name,
			CategoryID:  e.CategoryID,
			Description: e.Description,
			SortOrder:   e.SortOrder,
			GroupPrint:  e.GroupPrint,
		})
		if err != nil {
			return res, fmt.Errorf("equipment %q: %w", e.Name, err)
		}
		res.EquipmentCreated++

		if len(e.Serials) == 0 {
			continue
		}
		assets, _, err := svc.CreateAssetsBatch(ctx, domain.SystemActor, eq.ID, strings.Join(e.Serials, "\n"))
		if err != nil {
			return res, fmt.Errorf("assets of %q: %w", e.Name, err)
		}
		res.AssetsCreated += len(assets)
	}
	return res, nil
}

func printSeedResult(w io.Writer, res *SeedResult) {
	fmt.Fprintf(w, "equipment created: %d\n", res.EquipmentCreated)
	fmt.Fprintf(w, "equipment skipped: %d\n", res.EquipmentSkipped)
	fmt.Fprintf(w, "assets created:    %d\n", res.AssetsCreated)
}
