// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"filmrental/internal/domain"
	"filmrental/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// NewDB opens a migrated in-memory sqlite database private to the test. A single
// connection is kept so the memory database lives as long as the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:rental_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return db
}

// NewStore is NewDB wrapped in a repository.Store.
func NewStore(t *testing.T) *repository.Store {
	return repository.NewStore(NewDB(t))
}

var (
	Admin   = domain.ActorIdentity{ID: "admin-1", Name: "Park Admin", Email: "admin@film.ac.kr", Role: domain.RoleAdmin}
	Student = domain.ActorIdentity{ID: "student-1", Name: "Lee Student", Email: "lee@film.ac.kr", Role: domain.RoleStudent}
	Other   = domain.ActorIdentity{ID: "student-2", Name: "Choi Student", Email: "choi@film.ac.kr", Role: domain.RoleStudent}
)
