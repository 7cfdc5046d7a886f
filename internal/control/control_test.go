package control

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/alexbotov/slotsrv/internal/audit"
	"github.com/alexbotov/slotsrv/internal/database"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestControl(t *testing.T) (*Service, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	return New(nil, audit.New(nil, zap.New(core))), logs
}

func TestDisableAllGaming(t *testing.T) {
	svc, logs := setupTestControl(t)
	ctx := context.Background()

	t.Run("InitiallyEnabled", func(t *testing.T) {
		if !svc.IsGamingEnabled() {
			t.Error("Gaming should be enabled by default")
		}
	})

	t.Run("DisableGaming", func(t *testing.T) {
		if err := svc.DisableAllGaming(ctx, "Maintenance", "ops"); err != nil {
			t.Fatalf("Failed to disable gaming: %v", err)
		}
		if svc.IsGamingEnabled() {
			t.Error("Gaming should be disabled")
		}
		if err := svc.CheckAccess("legacy"); !errors.Is(err, ErrGamingDisabled) {
			t.Errorf("Expected ErrGamingDisabled, got %v", err)
		}
		st := svc.Status()
		if st.GamingEnabled || st.Gaming == nil || st.Gaming.Reason != "Maintenance" || st.Gaming.DisabledBy != "ops" {
			t.Errorf("Unexpected status %+v", st)
		}
		if n := logs.FilterField(zap.String("type", audit.EventGamingDisabled)).Len(); n != 1 {
			t.Errorf("Expected 1 gaming_disabled event, got %d", n)
		}
	})

	t.Run("EnableGaming", func(t *testing.T) {
		if err := svc.EnableAllGaming(ctx, "ops"); err != nil {
			t.Fatalf("Failed to enable gaming: %v", err)
		}
		if err := svc.CheckAccess("legacy"); err != nil {
			t.Errorf("Expected access, got %v", err)
		}
	})
}

func TestDisableMachine(t *testing.T) {
	svc, logs := setupTestControl(t)
	ctx := context.Background()

	if err := svc.DisableMachine(ctx, "2", "Paytable review", "ops"); err != nil {
		t.Fatalf("Failed to disable machine: %v", err)
	}

	t.Run("DisabledMachine", func(t *testing.T) {
		if err := svc.CheckAccess("2"); !errors.Is(err, ErrMachineDisabled) {
			t.Errorf("Expected ErrMachineDisabled, got %v", err)
		}
	})

	t.Run("OtherMachinesStillEnabled", func(t *testing.T) {
		if err := svc.CheckAccess("1"); err != nil {
			t.Errorf("Expected access to machine 1, got %v", err)
		}
	})

	t.Run("GamingSwitchWins", func(t *testing.T) {
		svc.DisableAllGaming(ctx, "Outage", "ops")
		defer svc.EnableAllGaming(ctx, "ops")
		if err := svc.CheckAccess("2"); !errors.Is(err, ErrGamingDisabled) {
			t.Errorf("Expected ErrGamingDisabled, got %v", err)
		}
	})

	t.Run("Status", func(t *testing.T) {
		svc.DisableMachine(ctx, "10", "Review", "ops")
		st := svc.Status()
		if len(st.DisabledMachines) != 2 || st.DisabledMachines[0].MachineID != "10" || st.DisabledMachines[1].MachineID != "2" {
			t.Errorf("Unexpected disabled machines %+v", st.DisabledMachines)
		}
	})

	t.Run("EnableMachine", func(t *testing.T) {
		if err := svc.EnableMachine(ctx, "2", "ops"); err != nil {
			t.Fatalf("Failed to enable machine: %v", err)
		}
		if !svc.IsMachineEnabled("2") {
			t.Error("Machine should be enabled")
		}
	})

	t.Run("InvalidID", func(t *testing.T) {
		if err := svc.DisableMachine(ctx, "*", "x", "ops"); err == nil {
			t.Error("Expected error for wildcard machine id")
		}
	})

	if n := logs.FilterField(zap.String("machine_id", "2")).Len(); n != 2 {
		t.Errorf("Expected 2 audit events for machine 2, got %d", n)
	}
}

func TestNilServiceAllowsAll(t *testing.T) {
	var svc *Service
	if err := svc.CheckAccess("legacy"); err != nil {
		t.Errorf("Expected nil service to allow play, got %v", err)
	}
}

func TestLoadState(t *testing.T) {
	dsn := os.Getenv("SLOTSRV_TEST_DSN")
	if dsn == "" {
		t.Skip("SLOTSRV_TEST_DSN not set")
	}
	db, err := database.New("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := db.CleanData(); err != nil {
		t.Fatalf("CleanData failed: %v", err)
	}
	defer db.CleanData()

	ctx := context.Background()
	svc := New(db.DB, nil)
	if err := svc.DisableAllGaming(ctx, "Maintenance", "ops"); err != nil {
		t.Fatalf("DisableAllGaming failed: %v", err)
	}
	if err := svc.DisableMachine(ctx, "1", "Review", "ops"); err != nil {
		t.Fatalf("DisableMachine failed: %v", err)
	}

	restored := New(db.DB, nil)
	if err := restored.LoadState(ctx); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if restored.IsGamingEnabled() || restored.IsMachineEnabled("1") {
		t.Errorf("Expected switches restored, got %+v", restored.Status())
	}

	if err := svc.EnableAllGaming(ctx, "ops"); err != nil {
		t.Fatalf("EnableAllGaming failed: %v", err)
	}
	if err := restored.LoadState(ctx); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !restored.IsGamingEnabled() {
		t.Error("Expected gaming enabled after reload")
	}
}
