package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitLogger_WritesToStdoutByDefault(t *testing.T) {
	InitLogger("", "info")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", zerolog.GlobalLevel())
	}
}

func TestInitLogger_ParsesLevel(t *testing.T) {
	InitLogger("", "debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", zerolog.GlobalLevel())
	}
}

func TestInitLogger_NormalizesWarningAlias(t *testing.T) {
	InitLogger("", "warning")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", zerolog.GlobalLevel())
	}
}

func TestInitLogger_UnparsableLevelFallsBackToInfo(t *testing.T) {
	InitLogger("", "not-a-real-level")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level fallback, got %v", zerolog.GlobalLevel())
	}
}

func TestInitLogger_WritesToFileWhenPathGiven(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	InitLogger(path, "info")
	log.Info().Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file")
	}
}
