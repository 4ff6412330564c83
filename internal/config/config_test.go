package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Load()
	if cfg.TTS.Type != "auto" {
		t.Errorf("TTS.Type = %q, want auto", cfg.TTS.Type)
	}
	if cfg.TTS.Rate != 1 || cfg.TTS.Pitch != 1 || cfg.TTS.Volume != 1 {
		t.Errorf("TTS rate/pitch/volume = %v/%v/%v, want 1/1/1", cfg.TTS.Rate, cfg.TTS.Pitch, cfg.TTS.Volume)
	}
	if cfg.Speech.EndDelay != 100*time.Millisecond {
		t.Errorf("Speech.EndDelay = %v, want 100ms", cfg.Speech.EndDelay)
	}
	if cfg.Store.Debounce != time.Second {
		t.Errorf("Store.Debounce = %v, want 1s", cfg.Store.Debounce)
	}
	if cfg.LogLevel() != logrus.InfoLevel {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
}

func TestInitReadsFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "readaloud.yaml")
	data := []byte(`tts:
  type: mock
  voice: Daniel
  rate: 1.5
speech:
  end_delay: 250ms
store:
  debounce: 2s
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg := Load()
	if cfg.TTS.Type != "mock" || cfg.TTS.Voice != "Daniel" || cfg.TTS.Rate != 1.5 {
		t.Errorf("TTS = %+v", cfg.TTS)
	}
	if cfg.TTS.Volume != 1 {
		t.Errorf("TTS.Volume = %v, want default 1", cfg.TTS.Volume)
	}
	if cfg.Speech.EndDelay != 250*time.Millisecond {
		t.Errorf("Speech.EndDelay = %v, want 250ms", cfg.Speech.EndDelay)
	}
	if cfg.Store.Debounce != 2*time.Second {
		t.Errorf("Store.Debounce = %v, want 2s", cfg.Store.Debounce)
	}
	if cfg.LogLevel() != logrus.DebugLevel {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
}

func TestInitEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("READALOUD_TTS_TYPE", "espeak")

	if err := Init(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Init() with a missing explicit file should fail")
	}
	if got := Load().TTS.Type; got != "espeak" {
		t.Errorf("TTS.Type = %q, want espeak from env", got)
	}
}

func TestLogLevelFallback(t *testing.T) {
	cfg := Config{Log: Log{Level: "loud"}}
	if cfg.LogLevel() != logrus.InfoLevel {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
}
