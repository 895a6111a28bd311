package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Anvoria/scanly/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// FindProjectRoot walks up from the working directory until it finds go.mod.
// Tests run from their package directory, so config paths need anchoring.
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return wd, nil
		}
	}
}

// LoadTestConfig loads the test configuration, honoring TEST_CONFIG_PATH and
// defaulting to config.yaml at the project root.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	root, err := FindProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	path := os.Getenv("TEST_CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load config from %s: %v", path, err)
	}
	return cfg
}

// SetupTestDB opens the configured postgres database and migrates the given
// models. Tests that need it are integration tests against a real database.
func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	cfg := LoadTestConfig(t)
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("Failed to migrate test database: %v", err)
		}
	}
	return db
}
