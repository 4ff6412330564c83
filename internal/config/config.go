// Package config registers the viper defaults and reads them back as a
// typed Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Name of the config file (readaloud.yaml) and the env prefix
// (READALOUD_TTS_TYPE etc).
const appName = "readaloud"

type Config struct {
	TTS    TTS
	Speech Speech
	Store  Store
	Log    Log
}

type TTS struct {
	Type      string
	Voice     string
	Lang      string
	Rate      float64
	Pitch     float64
	Volume    float64
	CachePath string
}

type Speech struct {
	EndDelay     time.Duration
	SleepMinutes float64
}

type Store struct {
	// Dir overrides the per-user data directory.
	Dir      string
	Debounce time.Duration
}

type Log struct {
	Level string
}

func SetDefaults() {
	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.lang", "")
	viper.SetDefault("tts.rate", 1.0)
	viper.SetDefault("tts.pitch", 1.0)
	viper.SetDefault("tts.volume", 1.0)
	viper.SetDefault("tts.cache_path", "")

	viper.SetDefault("speech.end_delay", 100*time.Millisecond)
	viper.SetDefault("speech.sleep_minutes", 0)

	viper.SetDefault("store.dir", "")
	viper.SetDefault("store.debounce", time.Second)

	viper.SetDefault("log.level", "info")
}

// Init points viper at cfgFile, or at readaloud.yaml in
// $HOME/.readaloud or the working directory, and reads it. A missing
// default file is not an error.
func Init(cfgFile string) error {
	SetDefaults()

	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/." + appName)
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("Loaded config")
	return nil
}

// Load reads the current viper values.
func Load() Config {
	return Config{
		TTS: TTS{
			Type:      viper.GetString("tts.type"),
			Voice:     viper.GetString("tts.voice"),
			Lang:      viper.GetString("tts.lang"),
			Rate:      viper.GetFloat64("tts.rate"),
			Pitch:     viper.GetFloat64("tts.pitch"),
			Volume:    viper.GetFloat64("tts.volume"),
			CachePath: viper.GetString("tts.cache_path"),
		},
		Speech: Speech{
			EndDelay:     viper.GetDuration("speech.end_delay"),
			SleepMinutes: viper.GetFloat64("speech.sleep_minutes"),
		},
		Store: Store{
			Dir:      viper.GetString("store.dir"),
			Debounce: viper.GetDuration("store.debounce"),
		},
		Log: Log{
			Level: viper.GetString("log.level"),
		},
	}
}

// LogLevel parses Log.Level, falling back to info.
func (c Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
