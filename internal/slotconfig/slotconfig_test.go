package slotconfig

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/alexbotov/slotsrv/internal/database"
	"github.com/alexbotov/slotsrv/internal/game"
)

const smallCatalogue = `
machines:
  - config: {id: 7, name: Tiny, reels: 3, rows: 1, min_bet: 1, max_bet: 10}
    symbols:
      - {id: 1, name: A, symbol_type: normal, payouts: {3: 10}}
      - {id: 2, name: B, symbol_type: normal, payouts: {3: 0}}
    reels:
      - {reel_number: 0, position: 0, symbol_id: 1, weight: 1}
      - {reel_number: 1, position: 0, symbol_id: 1, weight: 1}
      - {reel_number: 2, position: 0, symbol_id: 2, weight: 1}
    paylines:
      - {line_number: 1, pattern: [[0, 0], [1, 0], [2, 0]]}
  - config: {id: 3, name: Broken, reels: 2, rows: 1, min_bet: 1, max_bet: 1}
`

func TestParseYAML(t *testing.T) {
	ctx := context.Background()
	fs, err := ParseYAML([]byte(smallCatalogue))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}

	configs, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(configs) != 2 || configs[0].ID != 3 || configs[1].ID != 7 {
		t.Fatalf("Expected ids [3 7], got %+v", configs)
	}

	def, err := fs.Definition(ctx, 7)
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if def.Config.Name != "Tiny" || len(def.Reels) != 3 || len(def.Paylines) != 1 {
		t.Errorf("Unexpected definition %+v", def)
	}
	if def.Symbols[0].Payouts[3] != 10 {
		t.Errorf("Expected payout 10, got %v", def.Symbols[0].Payouts)
	}
	if _, err := game.Build(def); err != nil {
		t.Errorf("Expected Tiny to build, got %v", err)
	}

	broken, _ := fs.Definition(ctx, 3)
	if _, err := game.Build(broken); !errors.Is(err, game.ErrConfiguration) {
		t.Errorf("Expected configuration error for machine without reels, got %v", err)
	}

	if _, err := fs.Definition(ctx, 99); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	if _, err := ParseYAML([]byte("machines: [")); err == nil {
		t.Error("Expected parse error")
	}
	dup := "machines:\n  - config: {id: 1}\n  - config: {id: 1}\n"
	if _, err := ParseYAML([]byte(dup)); err == nil {
		t.Error("Expected duplicate id error")
	}
}

func TestShippedCatalogueBuilds(t *testing.T) {
	fs, err := LoadFile("../../configs/machines.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	defs := fs.Definitions()
	if len(defs) == 0 {
		t.Fatal("Expected at least one machine")
	}
	for _, def := range defs {
		m, err := game.Build(def)
		if err != nil {
			t.Errorf("Machine %d (%s) failed to build: %v", def.Config.ID, def.Config.Name, err)
			continue
		}
		if !m.Config().IsMegaway && len(m.Paylines()) == 0 {
			t.Errorf("Machine %d has no active paylines", def.Config.ID)
		}
	}
}

func TestFileStoreSave(t *testing.T) {
	ctx := context.Background()
	fs, err := ParseYAML([]byte(smallCatalogue))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	tiny, _ := fs.Definition(ctx, 7)

	id, err := fs.Save(ctx, tiny)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != 8 {
		t.Errorf("Expected next id 8, got %d", id)
	}
	if got, _ := fs.Definition(ctx, 7); got.Config.ID != 7 {
		t.Error("Save must not mutate the source definition")
	}

	broken, _ := fs.Definition(ctx, 3)
	if _, err := fs.Save(ctx, broken); !errors.Is(err, game.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestFileStoreDeactivate(t *testing.T) {
	ctx := context.Background()
	fs, err := ParseYAML([]byte(smallCatalogue))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}

	if err := fs.Deactivate(ctx, 7); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if _, err := fs.Definition(ctx, 7); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
	if err := fs.Deactivate(ctx, 7); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound on second deactivate, got %v", err)
	}
	configs, _ := fs.List(ctx)
	for _, c := range configs {
		if c.ID == 7 {
			t.Error("Expected retired config missing from List")
		}
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
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

	ctx := context.Background()
	fs, _ := ParseYAML([]byte(smallCatalogue))
	tiny, _ := fs.Definition(ctx, 7)
	inactive := false
	tiny.Paylines = append(tiny.Paylines, game.PaylineRecord{LineNumber: 2, Pattern: [][]int{{0, 0}, {1, 0}, {2, 0}}, IsActive: &inactive})

	repo := NewRepository(db.DB)
	id, err := repo.Save(ctx, tiny)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	def, err := repo.Definition(ctx, id)
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if def.Config.Name != "Tiny" || def.Config.MaxBet != 10 {
		t.Errorf("Unexpected config %+v", def.Config)
	}
	if len(def.Paylines) != 1 {
		t.Errorf("Expected only the active payline, got %d", len(def.Paylines))
	}
	for _, s := range def.Symbols {
		if s.Name == "B" && len(s.Payouts) != 0 {
			t.Errorf("Expected zero payouts dropped, got %v", s.Payouts)
		}
	}
	if _, err := game.Build(def); err != nil {
		t.Errorf("Loaded definition failed to build: %v", err)
	}

	configs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	found := false
	for _, c := range configs {
		found = found || c.ID == id
	}
	if !found {
		t.Error("Expected saved config in List")
	}

	if err := repo.Deactivate(ctx, id); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if _, err := repo.Definition(ctx, id); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected retired config to be gone, got %v", err)
	}
	if _, err := repo.Definition(ctx, -1); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
	if err := repo.Deactivate(ctx, -1); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}
