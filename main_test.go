package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexbotov/slotsrv/internal/auth"
	"github.com/alexbotov/slotsrv/internal/config"
	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/alexbotov/slotsrv/internal/jackpot"
)

func TestMachineProviderFromFile(t *testing.T) {
	cfg := config.Default()
	cfg.Machines.File = "configs/machines.yaml"

	p, err := machineProvider(cfg, nil)
	if err != nil {
		t.Fatalf("machineProvider failed: %v", err)
	}
	list, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) == 0 {
		t.Error("Expected shipped machines")
	}
}

func TestJackpotStoreDefaultsToMemory(t *testing.T) {
	store, closeStore, err := jackpotStore(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("jackpotStore failed: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*jackpot.MemoryStore); !ok {
		t.Errorf("Expected *jackpot.MemoryStore, got %T", store)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SLOTSRV_CONFIG", "")
	t.Setenv("SLOTSRV_JWT_SECRET", "cli-secret")
	configPath = ""

	cmd := newTokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"player-9", "--ttl", "1h"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}

	claims, err := auth.New("cli-secret", config.Default().Auth.Issuer).ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.PlayerID != "player-9" || claims.Operator || time.Until(claims.ExpiresAt) > time.Hour {
		t.Errorf("Unexpected claims %+v", claims)
	}

	cmd = newTokenCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ops", "--operator"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}
	claims, err = auth.New("cli-secret", config.Default().Auth.Issuer).ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.PlayerID != "ops" || !claims.Operator {
		t.Errorf("Expected operator claims, got %+v", claims)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, &game.SimulationReport{Spins: 10, RTP: 95.5}, time.Second)
	if !strings.Contains(out.String(), "95.5000%") {
		t.Errorf("Expected RTP in report, got:\n%s", out.String())
	}
}
