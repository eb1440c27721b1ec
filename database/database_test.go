package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func memoryConfig(t *testing.T) Config {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	return Config{Enabled: true, DSN: dsn, AutoMigrate: true, LogLevel: "silent"}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Driver != DriverSQLite || cfg.DSN != "yttext.db" {
		t.Errorf("unexpected driver defaults %+v", cfg)
	}
	if cfg.ConnMaxLifetime != time.Hour || cfg.SlowQueryThreshold != 200*time.Millisecond {
		t.Errorf("unexpected duration defaults %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Enabled: true}
	valid.ApplyDefaults()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"disabled skips", func(c *Config) { c.Enabled = false; c.DSN = "" }, false},
		{"missing dsn", func(c *Config) { c.DSN = "" }, true},
		{"idle over open", func(c *Config) { c.MaxIdleConns = 20; c.MaxOpenConns = 5 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestComponentLifecycle(t *testing.T) {
	comp := NewComponent(memoryConfig(t), logger.Nop()).WithAutoMigrate(&widget{})
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(ctx) })

	db := comp.DB()
	if err := db.WithContext(ctx).Create(&widget{Name: "a"}).Error; err != nil {
		t.Fatalf("insert after auto-migrate: %v", err)
	}
	if h := comp.Health(ctx); h.Status != "healthy" {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if d := comp.Describe(); d.Type != "database" {
		t.Errorf("unexpected description %+v", d)
	}
}

func TestComponentUnknownDriver(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Driver = "postgres"
	if err := NewComponent(cfg, logger.Nop()).Start(context.Background()); err == nil {
		t.Fatal("Expected error for driver without a registered dialect")
	}
}

func TestComponentWithDriver(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Driver = "custom"
	called := false
	comp := NewComponent(cfg, logger.Nop()).WithDriver(func(dsn string) gorm.Dialector {
		called = true
		return sqlite.Open(dsn)
	})
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer comp.Stop(ctx)
	if !called {
		t.Error("Custom driver not used")
	}
}

func TestWithTransaction(t *testing.T) {
	comp := NewComponent(memoryConfig(t), logger.Nop()).WithAutoMigrate(&widget{})
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer comp.Stop(ctx)
	db := comp.DB()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	db.WithContext(ctx).Model(&widget{}).Where("name = ?", "rolled-back").Count(&count)
	if count != 0 {
		t.Error("Expected rollback")
	}

	if err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}); err != nil {
		t.Fatal(err)
	}
	db.WithContext(ctx).Model(&widget{}).Where("name = ?", "kept").Count(&count)
	if count != 1 {
		t.Error("Expected commit")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	comp := NewComponent(memoryConfig(t), logger.Nop())
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := comp.DB().Close(); err != nil {
		t.Fatal(err)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestFromDatabase(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"not found", gorm.ErrRecordNotFound, apperrors.ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), apperrors.ErrCodeNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, apperrors.ErrCodeConflict},
		{"connection", errors.New("dial tcp: connection refused"), apperrors.ErrCodeServiceUnavailable},
		{"locked", errors.New("database is locked"), apperrors.ErrCodeServiceUnavailable},
		{"other", errors.New("syntax error"), apperrors.ErrCodeDatabaseError},
		{"app error passes through", apperrors.Conflict("x"), apperrors.ErrCodeConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromDatabase(tc.err, "job"); got.Code != tc.want {
				t.Errorf("code = %s, want %s", got.Code, tc.want)
			}
		})
	}
	if FromDatabase(nil, "job") != nil {
		t.Error("Nil error must map to nil")
	}
	if !IsNotFoundError(fmt.Errorf("x: %w", gorm.ErrRecordNotFound)) {
		t.Error("IsNotFoundError should unwrap")
	}
}
