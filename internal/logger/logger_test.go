package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseMode(t *testing.T) {
	if ParseMode("prod") != Prod || ParseMode("Production") != Prod {
		t.Error("Expected prod modes to parse as Prod")
	}
	if ParseMode("dev") != Dev || ParseMode("") != Dev {
		t.Error("Expected other modes to parse as Dev")
	}
}

func TestNewLevels(t *testing.T) {
	log := New(&Config{Level: "warn"})
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected info disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("Expected warn enabled")
	}

	log = New(&Config{Level: "loud"})
	if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected invalid level to fall back to info")
	}

	if !New(nil).Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected nil config to log debug")
	}
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	log := New(&Config{Level: "info", App: "slots", Dir: dir, File: true})
	log.Info("spin settled")
	log.Error("store unavailable")
	_ = log.Sync()

	for _, name := range []string{"slots.log", "slots_error.log"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Expected %s to exist: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("Expected %s to have content", name)
		}
	}
}
